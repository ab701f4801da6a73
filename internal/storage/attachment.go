package storage

import (
	"github.com/leengari/tree-tutor/internal/bundle"
	"github.com/leengari/tree-tutor/internal/treeconfig"
)

func newAttachment(spec treeconfig.Attachment) *Attachment {
	a := &Attachment{Type: spec.Type, Key: spec.Key}
	if spec.Type == treeconfig.DataKeyTop {
		a.Size = spec.Size
		a.Top = make(map[string]int64)
	}
	return a
}

// update folds one record into the attachment
func (a *Attachment) update(rec *bundle.Record) {
	switch a.Type {
	case treeconfig.DataCount:
		a.Count++
	case treeconfig.DataSum:
		v, _ := rec.Get(a.Key)
		switch n := v.(type) {
		case bundle.Int:
			a.Sum += float64(n)
		case bundle.Float:
			a.Sum += float64(n)
		}
	case treeconfig.DataKeyTop:
		v, ok := rec.Get(a.Key)
		if !ok || v == nil {
			return
		}
		if arr, isArray := v.(bundle.Array); isArray {
			for _, e := range arr {
				if e != nil {
					a.offer(e.String())
				}
			}
			return
		}
		a.offer(v.String())
	}
}

// offer counts key, evicting the smallest entry when the table is full
func (a *Attachment) offer(key string) {
	if _, ok := a.Top[key]; ok {
		a.Top[key]++
		return
	}
	if a.Size > 0 && len(a.Top) >= a.Size {
		minKey, minVal := "", int64(-1)
		for k, v := range a.Top {
			if minVal < 0 || v < minVal || v == minVal && k < minKey {
				minKey, minVal = k, v
			}
		}
		delete(a.Top, minKey)
	}
	a.Top[key] = 1
}

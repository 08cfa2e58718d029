package sync

import (
	"github.com/ultramynd/notesync/internal/types"
)

// Wire records and stored entities are converted field by field here and
// nowhere else.

func (r TagRecord) entity(n Normalizer) types.Tag {
	return types.Tag{
		ID:        r.TagID,
		Name:      r.TagName,
		IsDeleted: bool(r.IsDeleted),
		UpdatedAt: n.ToStoreTime(r.UpdatedAt),
	}
}

func tagRecord(t types.Tag) TagRecord {
	return TagRecord{
		TagID:     t.ID,
		TagName:   t.Name,
		IsDeleted: Flag(t.IsDeleted),
		UpdatedAt: ToClientTime(t.UpdatedAt),
	}
}

func (r CategoryRecord) entity(n Normalizer) types.Category {
	return types.Category{
		ID:        r.CategoryID,
		Name:      r.CategoryName,
		IsDeleted: bool(r.IsDeleted),
		UpdatedAt: n.ToStoreTime(r.UpdatedAt),
	}
}

func categoryRecord(c types.Category) CategoryRecord {
	return CategoryRecord{
		CategoryID:   c.ID,
		CategoryName: c.Name,
		IsDeleted:    Flag(c.IsDeleted),
		UpdatedAt:    ToClientTime(c.UpdatedAt),
	}
}

func (r SourceRecord) entity(n Normalizer) types.Source {
	return types.Source{
		ID:         r.SourceID,
		CategoryID: r.CategoryID,
		Name:       r.SourceName,
		IsDeleted:  bool(r.IsDeleted),
		UpdatedAt:  n.ToStoreTime(r.UpdatedAt),
	}
}

func sourceRecord(s types.Source) SourceRecord {
	return SourceRecord{
		SourceID:   s.ID,
		CategoryID: s.CategoryID,
		SourceName: s.Name,
		IsDeleted:  Flag(s.IsDeleted),
		UpdatedAt:  ToClientTime(s.UpdatedAt),
	}
}

func (r TakeawayRecord) entity(n Normalizer) types.Takeaway {
	var sourceID *string
	if r.SourceID != nil && *r.SourceID != "" {
		v := *r.SourceID
		sourceID = &v
	}
	return types.Takeaway{
		ID:         r.TakeawayID,
		CategoryID: r.CategoryID,
		SourceID:   sourceID,
		Content:    r.Content,
		IsDeleted:  bool(r.IsDeleted),
		UpdatedAt:  n.ToStoreTime(r.UpdatedAt),
	}
}

func takeawayRecord(t types.Takeaway) TakeawayRecord {
	return TakeawayRecord{
		TakeawayID: t.ID,
		CategoryID: t.CategoryID,
		SourceID:   t.SourceID,
		Content:    t.Content,
		IsDeleted:  Flag(t.IsDeleted),
		UpdatedAt:  ToClientTime(t.UpdatedAt),
	}
}

func (r TakeawayTagRecord) entity(n Normalizer) types.TakeawayTag {
	return types.TakeawayTag{
		ID:         r.TakeawayTagID,
		TakeawayID: r.TakeawayID,
		TagID:      r.TagID,
		IsDeleted:  bool(r.IsDeleted),
		UpdatedAt:  n.ToStoreTime(r.UpdatedAt),
	}
}

func takeawayTagRecord(t types.TakeawayTag) TakeawayTagRecord {
	return TakeawayTagRecord{
		TakeawayTagID: t.ID,
		TakeawayID:    t.TakeawayID,
		TagID:         t.TagID,
		IsDeleted:     Flag(t.IsDeleted),
		UpdatedAt:     ToClientTime(t.UpdatedAt),
	}
}

func mapSlice[In, Out any](in []In, f func(In) Out) []Out {
	out := make([]Out, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

// FromEntities converts stored entities to their wire form.
func FromEntities(cs types.ChangeSet) ChangeSet {
	return ChangeSet{
		Tags:         mapSlice(cs.Tags, tagRecord),
		Categories:   mapSlice(cs.Categories, categoryRecord),
		Sources:      mapSlice(cs.Sources, sourceRecord),
		Takeaways:    mapSlice(cs.Takeaways, takeawayRecord),
		TakeawayTags: mapSlice(cs.TakeawayTags, takeawayTagRecord),
	}
}

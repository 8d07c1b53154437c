package repository

import (
	"context"

	"github.com/jmehdipour/voidview/internal/tabular"
)

// LinksRepository manages the experiment/template pair table. It never checks
// that either side exists; callers validate ids before linking.
type LinksRepository interface {
	// Link appends the pairs that are not linked yet; existing pairs are kept.
	Link(ctx context.Context, experimentID int64, templateIDs []int64) error
	// Unlink removes every row of the pair and reports how many went away.
	Unlink(ctx context.Context, experimentID, templateID int64) (int, error)
	TemplateIDs(ctx context.Context, experimentID int64) ([]int64, error)
	ExperimentIDs(ctx context.Context, templateID int64) ([]int64, error)
}

type LinksRepositoryImpl struct {
	b *tabular.Backend
}

func NewLinksRepository(b *tabular.Backend) *LinksRepositoryImpl {
	return &LinksRepositoryImpl{b: b}
}

var _ LinksRepository = (*LinksRepositoryImpl)(nil)

type link struct {
	experimentID int64
	templateID   int64
}

// readLinks returns the well-formed pairs in row order; malformed rows are
// skipped.
func readLinks(t *tabular.Table) []link {
	recs := t.Records()
	out := make([]link, 0, len(recs))
	for _, rec := range recs {
		e, ok1 := tabular.ParseID(rec["experiment_id"])
		tp, ok2 := tabular.ParseID(rec["template_id"])
		if ok1 && ok2 {
			out = append(out, link{experimentID: e, templateID: tp})
		}
	}
	return out
}

func linkTemplates(t *tabular.Table, experimentID int64, templateIDs []int64) (int, error) {
	existing := make(map[int64]bool)
	for _, l := range readLinks(t) {
		if l.experimentID == experimentID {
			existing[l.templateID] = true
		}
	}
	added := 0
	for _, id := range templateIDs {
		if existing[id] {
			continue
		}
		existing[id] = true
		err := appendRow(t, tabular.Record{
			"experiment_id": tabular.FormatID(experimentID),
			"template_id":   tabular.FormatID(id),
		})
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func templateIDsOf(t *tabular.Table, experimentID int64) []int64 {
	out := []int64{}
	for _, l := range readLinks(t) {
		if l.experimentID == experimentID {
			out = append(out, l.templateID)
		}
	}
	return out
}

func experimentIDsOf(t *tabular.Table, templateID int64) []int64 {
	out := []int64{}
	for _, l := range readLinks(t) {
		if l.templateID == templateID {
			out = append(out, l.experimentID)
		}
	}
	return out
}

func removeLinks(t *tabular.Table, match func(link) bool) int {
	return t.DeleteWhere(func(rec tabular.Record) bool {
		e, ok1 := tabular.ParseID(rec["experiment_id"])
		tp, ok2 := tabular.ParseID(rec["template_id"])
		return ok1 && ok2 && match(link{experimentID: e, templateID: tp})
	})
}

func (r *LinksRepositoryImpl) Link(ctx context.Context, experimentID int64, templateIDs []int64) error {
	return r.b.Update(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableExperimentTemplates)
		if err != nil {
			return err
		}
		_, err = linkTemplates(t, experimentID, templateIDs)
		return err
	})
}

func (r *LinksRepositoryImpl) Unlink(ctx context.Context, experimentID, templateID int64) (int, error) {
	var n int
	err := r.b.Update(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableExperimentTemplates)
		if err != nil {
			return err
		}
		n = removeLinks(t, func(l link) bool {
			return l.experimentID == experimentID && l.templateID == templateID
		})
		return nil
	})
	return n, err
}

func (r *LinksRepositoryImpl) TemplateIDs(ctx context.Context, experimentID int64) ([]int64, error) {
	var out []int64
	err := r.b.View(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableExperimentTemplates)
		if err != nil {
			return err
		}
		out = templateIDsOf(t, experimentID)
		return nil
	})
	return out, err
}

func (r *LinksRepositoryImpl) ExperimentIDs(ctx context.Context, templateID int64) ([]int64, error) {
	var out []int64
	err := r.b.View(ctx, tabular.FileExperiments, func(set *tabular.Set) error {
		t, err := set.Table(tabular.TableExperimentTemplates)
		if err != nil {
			return err
		}
		out = experimentIDsOf(t, templateID)
		return nil
	})
	return out, err
}

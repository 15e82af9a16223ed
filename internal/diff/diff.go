// Package diff compares two sealed runs of the ledger.
//
// Claims are correlated by natural key, never by storage identifier: storage
// IDs encode confidence and evidence sets, so the "same" claim re-recorded
// with a new confidence gets a new ID but keeps its key. Evidence is
// correlated by content identifier, with the source descriptor used to tell a
// silent edit apart from an ordinary add/remove pair.
package diff

import (
	"sort"

	"github.com/ppiankov/watchtower/internal/model"
)

// ClaimChange describes one claim whose run fingerprint differs between runs.
type ClaimChange struct {
	NaturalKey      string      `json:"natural_key"`
	Old             model.Claim `json:"old"`
	New             model.Claim `json:"new"`
	ConfidenceDelta float64     `json:"confidence_delta"` // new minus old
	AddedEvidence   []string    `json:"added_evidence,omitempty"`
	RemovedEvidence []string    `json:"removed_evidence,omitempty"`
	ChangedFields   []string    `json:"changed_fields"`
}

// SilentEdit describes evidence whose source descriptor is unchanged between
// runs while its content identifier is not: the source URI stayed the same
// but what it said changed.
type SilentEdit struct {
	Source string `json:"source"`
	OldID  string `json:"old_id"`
	NewID  string `json:"new_id"`
	NewSeq int    `json:"-"`
}

// Result is the structured outcome of comparing two sealed runs.
type Result struct {
	Added       []model.Claim `json:"added"`
	Removed     []model.Claim `json:"removed"`
	Modified    []ClaimChange `json:"modified"`
	SilentEdits []SilentEdit  `json:"silent_edits"`
}

// Empty reports whether the two runs were identical.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Modified) == 0 && len(r.SilentEdits) == 0
}

// TotalChanges counts every entry across all four categories.
func (r Result) TotalChanges() int {
	return len(r.Added) + len(r.Removed) + len(r.Modified) + len(r.SilentEdits)
}

// Runs computes the diff from old to new. Both runs must be sealed: a diff
// must be a closed, reproducible function of two fixed end states. The
// function is pure and deterministic; Runs(a, a) is empty for any sealed a,
// and Runs(a, b).Added mirrors Runs(b, a).Removed.
func Runs(old, new model.RunSnapshot) (Result, error) {
	if !old.Run.Sealed {
		return Result{}, &model.RunNotSealedError{RunID: old.Run.ID}
	}
	if !new.Run.Sealed {
		return Result{}, &model.RunNotSealedError{RunID: new.Run.ID}
	}

	oldByKey := old.ClaimsByNaturalKey()
	newByKey := new.ClaimsByNaturalKey()

	res := Result{
		Added:       []model.Claim{},
		Removed:     []model.Claim{},
		Modified:    []ClaimChange{},
		SilentEdits: []SilentEdit{},
	}

	for key, c := range newByKey {
		prev, ok := oldByKey[key]
		if !ok {
			res.Added = append(res.Added, c)
			continue
		}
		if prev.RunFingerprint != c.RunFingerprint {
			res.Modified = append(res.Modified, compareClaims(prev, c))
		}
	}
	for key, c := range oldByKey {
		if _, ok := newByKey[key]; !ok {
			res.Removed = append(res.Removed, c)
		}
	}

	res.SilentEdits = silentEdits(old, new)

	sort.Slice(res.Added, func(i, j int) bool { return res.Added[i].Seq < res.Added[j].Seq })
	sort.Slice(res.Removed, func(i, j int) bool { return res.Removed[i].Seq < res.Removed[j].Seq })
	sort.Slice(res.Modified, func(i, j int) bool { return res.Modified[i].New.Seq < res.Modified[j].New.Seq })
	sort.Slice(res.SilentEdits, func(i, j int) bool { return res.SilentEdits[i].NewSeq < res.SilentEdits[j].NewSeq })
	return res, nil
}

// compareClaims builds the change record for one correlated claim pair.
func compareClaims(old, new model.Claim) ClaimChange {
	ch := ClaimChange{
		NaturalKey:      new.NaturalKey,
		Old:             old,
		New:             new,
		ConfidenceDelta: new.Confidence - old.Confidence,
		ChangedFields:   []string{},
	}
	if old.Confidence != new.Confidence {
		ch.ChangedFields = append(ch.ChangedFields, "confidence")
	}
	ch.AddedEvidence = setMinus(new.EvidenceRefs(), old.EvidenceRefs())
	ch.RemovedEvidence = setMinus(old.EvidenceRefs(), new.EvidenceRefs())
	if len(ch.AddedEvidence) > 0 || len(ch.RemovedEvidence) > 0 {
		ch.ChangedFields = append(ch.ChangedFields, "evidence_set")
	}
	if old.Tool != new.Tool {
		ch.ChangedFields = append(ch.ChangedFields, "tool")
	}
	return ch
}

// silentEdits finds sources present in both runs whose content identifier
// changed. A source that merely gained extra evidence records in the new run
// is not a silent edit unless none of its old identifiers survived.
func silentEdits(old, new model.RunSnapshot) []SilentEdit {
	oldBySource := old.EvidenceBySource()
	newBySource := new.EvidenceBySource()

	sources := make([]string, 0, len(newBySource))
	for source := range newBySource {
		if _, ok := oldBySource[source]; ok {
			sources = append(sources, source)
		}
	}
	sort.Strings(sources)

	edits := []SilentEdit{}
	for _, source := range sources {
		oldEvs := oldBySource[source]
		newEvs := newBySource[source]

		newIDs := make(map[string]bool, len(newEvs))
		for _, e := range newEvs {
			newIDs[e.ID] = true
		}
		survived := false
		for _, e := range oldEvs {
			if newIDs[e.ID] {
				survived = true
				break
			}
		}
		if survived {
			// old content still present; new records are additions
			continue
		}

		for _, e := range newEvs {
			edits = append(edits, SilentEdit{
				Source: source,
				OldID:  oldEvs[len(oldEvs)-1].ID,
				NewID:  e.ID,
				NewSeq: e.Seq,
			})
		}
	}
	return edits
}

// setMinus returns the members of a that are absent from b, sorted.
func setMinus(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	out := []string{}
	for _, id := range a {
		if !inB[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

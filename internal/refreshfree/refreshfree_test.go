package refreshfree

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestParamsBillionsExtractsLargestToken(t *testing.T) {
	got, ok := ParamsBillions("Meta Llama 3.1 70B Instruct (128k context)")
	if !ok || got != 70 {
		t.Fatalf("got %v, %v", got, ok)
	}
}

func TestParamsBillionsNoMatch(t *testing.T) {
	if _, ok := ParamsBillions("Mystery Model"); ok {
		t.Fatal("expected no match")
	}
}

func TestFilterFreeKeepsOnlyFreeSuffix(t *testing.T) {
	now := time.Now()
	models := []CatalogModel{
		{ID: "a/model:free", Name: "A 70B", Created: now.Unix()},
		{ID: "b/model", Name: "B 70B", Created: now.Unix()},
	}
	kept := FilterFree(models, DefaultMinParamsB, 0, now)
	if len(kept) != 1 || kept[0].ID != "a/model:free" {
		t.Fatalf("got %+v", kept)
	}
}

func TestFilterFreeRejectsBelowMinParams(t *testing.T) {
	now := time.Now()
	models := []CatalogModel{{ID: "a/model:free", Name: "Tiny 7B", Created: now.Unix()}}
	kept := FilterFree(models, DefaultMinParamsB, 0, now)
	if len(kept) != 0 {
		t.Fatalf("expected tiny model filtered out, got %+v", kept)
	}
}

func TestFilterFreeRejectsStaleModels(t *testing.T) {
	now := time.Now()
	stale := now.Add(-400 * 24 * time.Hour)
	models := []CatalogModel{{ID: "a/model:free", Name: "A 70B", Created: stale.Unix()}}
	kept := FilterFree(models, 0, DefaultMaxAgeDays, now)
	if len(kept) != 0 {
		t.Fatalf("expected stale model filtered out, got %+v", kept)
	}
}

func TestFilterFreeZeroMaxAgeDisablesFilter(t *testing.T) {
	now := time.Now()
	ancient := now.Add(-10000 * 24 * time.Hour)
	models := []CatalogModel{{ID: "a/model:free", Name: "A 70B", Created: ancient.Unix()}}
	kept := FilterFree(models, 0, 0, now)
	if len(kept) != 1 {
		t.Fatalf("expected maxAgeDays=0 to disable the age filter, got %+v", kept)
	}
}

func TestFilterFreeCapsAtTen(t *testing.T) {
	now := time.Now()
	var models []CatalogModel
	for i := 0; i < 15; i++ {
		models = append(models, CatalogModel{ID: "m/" + string(rune('a'+i)) + ":free", Name: "X 70B", Created: now.Unix() - int64(i)})
	}
	kept := FilterFree(models, 0, 0, now)
	if len(kept) != 10 {
		t.Fatalf("expected cap of 10, got %d", len(kept))
	}
}

func TestIsRateLimitedDetectsCommonSubstrings(t *testing.T) {
	if !IsRateLimited(errors.New("429 Too Many Requests")) {
		t.Error("expected 429 to be detected")
	}
	if !IsRateLimited(errors.New("rate limit exceeded")) {
		t.Error("expected rate limit phrase to be detected")
	}
	if IsRateLimited(errors.New("connection refused")) {
		t.Error("expected an unrelated error not to be flagged")
	}
}

func TestProbeRetriesOnceOnRateLimitThenSucceeds(t *testing.T) {
	orig := sleepFunc
	sleepFunc = func(time.Duration) {}
	defer func() { sleepFunc = orig }()

	calls := 0
	probe := func(ctx context.Context, modelID string) error {
		calls++
		if calls == 1 {
			return errors.New("429 rate limited")
		}
		return nil
	}

	results := Probe(context.Background(), []CatalogModel{{ID: "a/model:free"}}, 1, false, logrus.StandardLogger(), probe)
	if len(results) != 1 || !results[0].Passed || !results[0].Retried {
		t.Fatalf("got %+v", results)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one retry (2 calls), got %d", calls)
	}
}

func TestProbeDoesNotRetryRateLimitTwice(t *testing.T) {
	orig := sleepFunc
	sleepFunc = func(time.Duration) {}
	defer func() { sleepFunc = orig }()

	calls := 0
	probe := func(ctx context.Context, modelID string) error {
		calls++
		return errors.New("429 rate limited")
	}

	results := Probe(context.Background(), []CatalogModel{{ID: "a/model:free"}}, 1, false, logrus.StandardLogger(), probe)
	if results[0].Passed {
		t.Fatal("expected the candidate to fail after exhausting its retry")
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts (1 original + 1 retry), got %d", calls)
	}
}

func TestPassingFiltersToSuccessfulCandidates(t *testing.T) {
	results := []ProbeResult{{ID: "a", Passed: true}, {ID: "b", Passed: false}}
	ids := Passing(results)
	if len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("got %v", ids)
	}
}

package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
)

// Flag names, one per behavior that operations may want to switch off
// without a redeploy. Core enrollment rules (prerequisites, credit
// ceilings, seat capacity) are deliberately NOT flags: those are academic
// policy, not rollout knobs.
const (
	// FeatureEnrollSeatReconcile gates the worker job that trues up
	// Enrolled counters against the enrollment log.
	FeatureEnrollSeatReconcile = "enroll.seat_reconcile"

	// FeatureNotifyEnrollConfirm and FeatureNotifyDropConfirm gate the
	// confirmation mail after an enrollment decision. With the flag off
	// the mail is written to the log instead of the relay.
	FeatureNotifyEnrollConfirm = "notify.enroll_confirmation"
	FeatureNotifyDropConfirm   = "notify.drop_confirmation"

	// FeatureNotifyDailyDigest gates the registrar's end-of-day summary.
	FeatureNotifyDailyDigest = "notify.daily_digest"

	// FeatureAPIRateLimit gates per-client request throttling on the
	// public API.
	FeatureAPIRateLimit = "api.rate_limit"
)

// Feature is one toggle. RolloutPercent below 100 enables the feature for
// a stable fraction of students, bucketed by NIM.
type Feature struct {
	Name           string
	Enabled        bool
	RolloutPercent int
}

// FeatureContext identifies the subject of a flag evaluation. A nil
// context evaluates globally: partial rollouts count as on.
type FeatureContext struct {
	StudentNIM string
}

// FeatureFlags holds the flag set for one process. It is built once by
// LoadFeatureFlags and never mutated afterwards, so reads need no lock.
type FeatureFlags struct {
	features map[string]Feature
}

// Every flag ships enabled at full rollout; overrides turn things off.
func defaultFeatures() []Feature {
	names := []string{
		FeatureEnrollSeatReconcile,
		FeatureNotifyEnrollConfirm,
		FeatureNotifyDropConfirm,
		FeatureNotifyDailyDigest,
		FeatureAPIRateLimit,
	}

	out := make([]Feature, len(names))
	for i, name := range names {
		out[i] = Feature{Name: name, Enabled: true, RolloutPercent: 100}
	}
	return out
}

// LoadFeatureFlags builds the default flag set and applies environment
// overrides of the form FEATURE_<NAME>, where <NAME> is the flag name
// upper-cased with dots replaced by underscores. The value is either a
// boolean ("true", "false") or a rollout percentage ("0" to "100").
//
//	FEATURE_NOTIFY_DAILY_DIGEST=false
//	FEATURE_NOTIFY_DROP_CONFIRMATION=25
func LoadFeatureFlags() *FeatureFlags {
	defaults := defaultFeatures()
	ff := &FeatureFlags{features: make(map[string]Feature, len(defaults))}
	for _, f := range defaults {
		applyEnvOverride(&f)
		ff.features[f.Name] = f
	}
	return ff
}

// applyEnvOverride rewrites a flag from its environment variable, if set.
// Unparseable values keep the default.
func applyEnvOverride(f *Feature) {
	raw := os.Getenv(envKeyFor(f.Name))
	if raw == "" {
		return
	}

	if b, err := strconv.ParseBool(raw); err == nil {
		f.Enabled = b
		f.RolloutPercent = 0
		if b {
			f.RolloutPercent = 100
		}
		return
	}

	if p, err := strconv.Atoi(raw); err == nil && p >= 0 && p <= 100 {
		f.Enabled = p > 0
		f.RolloutPercent = p
	}
}

// envKeyFor maps "notify.daily_digest" to "FEATURE_NOTIFY_DAILY_DIGEST".
func envKeyFor(name string) string {
	return "FEATURE_" + strings.ReplaceAll(strings.ToUpper(name), ".", "_")
}

// IsEnabled reports whether a flag is on for the given subject. Unknown
// names are off. A partial rollout assigns each student to a stable
// bucket by hashing flag name and NIM together, so the same student gets
// the same answer across processes and restarts.
func (ff *FeatureFlags) IsEnabled(name string, fctx *FeatureContext) bool {
	f, ok := ff.features[name]
	if !ok || !f.Enabled {
		return false
	}
	if f.RolloutPercent >= 100 {
		return true
	}
	if fctx != nil && fctx.StudentNIM != "" {
		return rolloutBucket(name, fctx.StudentNIM) < f.RolloutPercent
	}
	return f.RolloutPercent > 0
}

// rolloutBucket maps a flag and NIM pair onto 0-99.
func rolloutBucket(name, nim string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(nim))
	return int(h.Sum32() % 100)
}

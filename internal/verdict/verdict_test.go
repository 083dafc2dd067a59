package verdict

import (
	"testing"

	"veracity-service/internal/signal"
	"veracity-service/internal/social"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(mean float64) social.Snapshot {
	return social.Snapshot{PerPlatform: map[string]signal.Result{}, MeanScore: mean}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name       string
		primary    float64
		social     float64
		wantScore  float64
		authentic  bool
		conclusion string
	}{
		{"strong text", 0.8, 0.4, 0.64, true, ConclusionAuthentic},
		{"unavailable primary", 0, 0.5, 0.2, false, ConclusionFake},
		{"all real", 1, 1, 1, true, ConclusionAuthentic},
		{"nothing", 0, 0, 0, false, ConclusionFake},
		{"exactly threshold", 0.5, 0.5, 0.5, false, ConclusionFake},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Combine(signal.KindText, signal.NewResult(tt.primary, "primary"), snapshot(tt.social))
			assert.InDelta(t, tt.wantScore, v.FinalScore, 1e-9)
			assert.Equal(t, tt.authentic, v.IsAuthentic)
			assert.Equal(t, tt.conclusion, v.Conclusion)
			assert.Equal(t, signal.KindText, v.InputKind)
		})
	}
}

func TestCombineIsDeterministic(t *testing.T) {
	primary := signal.NewResult(0.7, "ok")
	snap := snapshot(0.3)

	first := Combine(signal.KindLink, primary, snap)
	second := Combine(signal.KindLink, primary, snap)
	assert.Equal(t, first, second)
}

func TestCombineCopiesPlatformResults(t *testing.T) {
	results := map[string]signal.Result{"twitter": signal.NewResult(0.4, "mentions")}
	v := Combine(signal.KindText, signal.NewResult(0.8, "ok"), social.Snapshot{PerPlatform: results, MeanScore: 0.4})

	results["twitter"] = signal.NewResult(1, "rewritten")
	results["facebook"] = signal.NewResult(1, "added")

	require.Len(t, v.Social.PerPlatform, 1)
	assert.Equal(t, "mentions", v.Social.PerPlatform["twitter"].Narrative)
}

func TestCombineClampsInputs(t *testing.T) {
	v := Combine(signal.KindImage, signal.Result{Score: 3, Narrative: "hot"}, snapshot(-2))

	assert.Equal(t, 1.0, v.Primary.Score)
	assert.Equal(t, 0.0, v.Social.MeanScore)
	assert.InDelta(t, 0.6, v.FinalScore, 1e-9)
	assert.True(t, v.IsAuthentic)
}

func TestCustomPolicy(t *testing.T) {
	p := Policy{PrimaryWeight: 0.5, SocialWeight: 0.5, Threshold: 0.7}
	require.NoError(t, p.Validate())

	v := p.Combine(signal.KindText, signal.NewResult(0.8, "ok"), snapshot(0.5))
	assert.InDelta(t, 0.65, v.FinalScore, 1e-9)
	assert.False(t, v.IsAuthentic)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	assert.Error(t, Policy{PrimaryWeight: 0.7, SocialWeight: 0.7, Threshold: 0.5}.Validate())
	assert.Error(t, Policy{PrimaryWeight: 1.2, SocialWeight: -0.2, Threshold: 0.5}.Validate())
	assert.Error(t, Policy{PrimaryWeight: 0.6, SocialWeight: 0.4, Threshold: 1.5}.Validate())
}

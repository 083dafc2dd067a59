package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"veracity-service/internal/signal"
	"veracity-service/internal/social"
	"veracity-service/internal/verdict"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVerdict(primary, mean float64) verdict.Verdict {
	return verdict.Combine(signal.KindText,
		signal.NewResult(primary, "classifier says real"),
		social.NewSnapshot(map[string]signal.Result{"twitter": signal.NewResult(mean, "mentions")}))
}

func TestFromVerdict(t *testing.T) {
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	v := sampleVerdict(0.8, 0.4)

	rec, err := FromVerdict(v, Meta{
		Title:       "Bridge reopens",
		Content:     "Bridge reopens after repairs",
		Source:      " City Herald ",
		PublishedAt: published,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bridge reopens", rec.Title)
	assert.Equal(t, "City Herald", rec.Source)
	assert.Equal(t, published.UTC(), rec.PublishedDate)
	assert.InDelta(t, 0.64, rec.VeracityScore, 1e-9)
	assert.False(t, rec.IsFake)

	var report verdict.Verdict
	require.NoError(t, json.Unmarshal([]byte(rec.AnalysisReport), &report))
	assert.InDelta(t, v.FinalScore, report.FinalScore, 1e-9)
	assert.Contains(t, report.Social.PerPlatform, "twitter")
}

func TestFromVerdictDefaults(t *testing.T) {
	rec, err := FromVerdict(sampleVerdict(0, 0.5), Meta{
		Content: "\n\n  Storm warning issued  \nDetails follow",
	})
	require.NoError(t, err)

	assert.Equal(t, UnknownSource, rec.Source)
	assert.Equal(t, "Storm warning issued", rec.Title)
	assert.True(t, rec.IsFake)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Untitled", DeriveTitle("   \n\t"))
	assert.Equal(t, "first", DeriveTitle("first\nsecond"))

	long := strings.Repeat("é", MaxTitleLength+10)
	assert.Equal(t, MaxTitleLength, len([]rune(DeriveTitle(long))))
}

func TestFromVerdictTruncatesColumns(t *testing.T) {
	rec, err := FromVerdict(sampleVerdict(1, 1), Meta{
		Title:   strings.Repeat("a", 300),
		Content: "x",
		Source:  strings.Repeat("ü", 400),
	})
	require.NoError(t, err)
	assert.Len(t, rec.Title, MaxTitleLength)
	assert.Equal(t, MaxSourceLength, len([]rune(rec.Source)))
}

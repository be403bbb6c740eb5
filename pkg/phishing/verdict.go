// pkg/phishing/verdict.go
package phishing

import "github.com/tidwall/gjson"

// Verdict labels
const (
	VerdictPhishing   = "Phishing"
	VerdictSuspicious = "Suspicious"
	VerdictLegitimate = "Legitimate"
)

// Verdict is the classification of one URL
type Verdict struct {
	URL        string `json:"url"`
	Verdict    string `json:"verdict"`
	IsPhishing bool   `json:"is_phishing"`
	AnalysisID string `json:"analysis_id"`
	Malicious  int64  `json:"malicious"`
	Suspicious int64  `json:"suspicious"`
	Harmless   int64  `json:"harmless"`
	Undetected int64  `json:"undetected"`
}

func classify(target, analysisID string, stats gjson.Result) *Verdict {
	v := &Verdict{
		URL:        target,
		AnalysisID: analysisID,
		Malicious:  stats.Get("malicious").Int(),
		Suspicious: stats.Get("suspicious").Int(),
		Harmless:   stats.Get("harmless").Int(),
		Undetected: stats.Get("undetected").Int(),
	}

	switch {
	case v.Malicious > 0:
		v.Verdict = VerdictPhishing
	case v.Suspicious > 0:
		v.Verdict = VerdictSuspicious
	default:
		v.Verdict = VerdictLegitimate
	}
	v.IsPhishing = v.Verdict != VerdictLegitimate
	return v
}

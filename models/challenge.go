package models

// ChallengeType identifies which bot-protection vendor (or none) a page
// matches.
type ChallengeType string

const (
	ChallengeCloudflare  ChallengeType = "cloudflare"
	ChallengePerimeterX  ChallengeType = "perimeterx"
	ChallengeAkamai      ChallengeType = "akamai"
	ChallengeDataDome    ChallengeType = "datadome"
	ChallengeIncapsula   ChallengeType = "incapsula"
	ChallengeGenericBlock ChallengeType = "generic-block"
	ChallengeEmptyShell  ChallengeType = "empty-shell"
	ChallengeNone        ChallengeType = "none"
)

// ChallengeVerdict is the output of the challenge/block detector.
type ChallengeVerdict struct {
	IsChallenge bool          `json:"isChallenge"`
	Type        ChallengeType `json:"type"`
	Confidence  float64       `json:"confidence"`
	Signals     []string      `json:"signals,omitempty"`
}

// ChallengeConfidenceThreshold is the confidence at or above which a
// verdict is considered a block (IsChallenge ⇔ confidence ≥ threshold).
const ChallengeConfidenceThreshold = 0.7

// SuspiciouslySmallThreshold is the single content-length threshold below
// which parsed content is treated as "suspiciously small" for Stage-6
// challenge re-detection and for the generic-block content-length signal.
const SuspiciouslySmallThreshold = 2000

package simulate

import (
	"crypto/rand"
	"math/big"

	"github.com/tiaraboard/tiara/internal/domain/model"
)

// Constants for random score generation.
const (
	randomFloatDivisor = 1000000
	profileCount       = 5
)

// Score profile cases. Each judge/contestant pairing draws a profile so
// the field spreads out the way a real panel does.
const (
	caseStrong  = 0
	caseWeak    = 1
	caseAverage = 2
	caseErratic = 3
	caseTied    = 4
)

// Profile score fractions of a criterion's maximum.
const (
	strongMin    = 0.85
	strongRange  = 0.15
	weakMin      = 0.40
	weakRange    = 0.25
	averageMin   = 0.65
	averageRange = 0.20
	erraticMin   = 0.30
	erraticRange = 0.70
	tiedFraction = 0.75
)

// Submission is one judge's generated scoring action, carrying the raw
// values the simulator later replays into its local oracle.
type Submission struct {
	JudgeID      string
	DivisionID   string
	CategoryID   string
	ContestantID string
	Raw          map[string]float64 // criterion id -> raw score
}

// getRandomFloat returns a random float64 in [0,1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateSubmissions produces one submission per judge, category and
// contestant of the judge's division.
func generateSubmissions(event model.Event) []Submission {
	contestantsByDivision := make(map[string][]model.Contestant)
	for _, c := range event.Contestants {
		contestantsByDivision[c.DivisionID] = append(contestantsByDivision[c.DivisionID], c)
	}

	var subs []Submission
	for _, judge := range event.Judges {
		for _, category := range event.Categories {
			for _, contestant := range contestantsByDivision[judge.DivisionID] {
				subs = append(subs, Submission{
					JudgeID:      judge.ID,
					DivisionID:   judge.DivisionID,
					CategoryID:   category.ID,
					ContestantID: contestant.ID,
					Raw:          generateRawScores(category),
				})
			}
		}
	}
	return subs
}

// generateRawScores draws a profile and fills every criterion of the
// category with a raw score legal for that criterion.
func generateRawScores(category model.Category) map[string]float64 {
	profile, _ := rand.Int(rand.Reader, big.NewInt(profileCount))

	raw := make(map[string]float64, len(category.Criteria))
	for _, criterion := range category.Criteria {
		maxRaw := criterion.MaxRaw()
		var fraction float64
		switch profile.Int64() {
		case caseStrong:
			fraction = strongMin + getRandomFloat()*strongRange
		case caseWeak:
			fraction = weakMin + getRandomFloat()*weakRange
		case caseAverage:
			fraction = averageMin + getRandomFloat()*averageRange
		case caseErratic:
			fraction = erraticMin + getRandomFloat()*erraticRange
		case caseTied:
			// Identical fraction for every contestant drawing this profile,
			// so tie-averaging paths get exercised.
			fraction = tiedFraction
		default:
			fraction = averageMin + getRandomFloat()*averageRange
		}
		raw[criterion.ID] = fraction * maxRaw
	}
	return raw
}

package services

import (
	"math"

	"revisionaid/internal/config"
	"revisionaid/internal/models"
)

// CalculateAccuracy returns correct/answered as a percentage rounded to two
// decimal places. It is 0 when nothing has been answered.
func CalculateAccuracy(timesAnswered, timesCorrect int) float64 {
	if timesAnswered <= 0 {
		return 0
	}
	return math.Round(float64(timesCorrect)/float64(timesAnswered)*100*100) / 100
}

// ClassifyAnswer compares a submitted answer with the correct one.
// The "I don't know" choice is always unknown.
func ClassifyAnswer(submitted, correct string) models.AnswerClassification {
	switch submitted {
	case config.IDontKnowAnswer:
		return models.AnswerUnknown
	case correct:
		return models.AnswerCorrect
	default:
		return models.AnswerWrong
	}
}

// ApplyAnswer returns counters with one more answer recorded. Exactly one
// outcome counter is incremented and an unrecognised classification counts as
// unknown. Accuracy and proficiency are recomputed.
func ApplyAnswer(counters models.Counters, classification models.AnswerClassification) models.Counters {
	next := counters
	next.TimesAnswered++
	switch classification.Normalize() {
	case models.AnswerCorrect:
		next.TimesCorrect++
	case models.AnswerWrong:
		next.TimesWrong++
	default:
		next.TimesUnknown++
	}
	next.Accuracy = CalculateAccuracy(next.TimesAnswered, next.TimesCorrect)
	if next.ProficiencyLevel < models.InitialProficiencyLevel {
		next.ProficiencyLevel = models.InitialProficiencyLevel
	}
	return next
}

package evaluation

import (
	"fmt"
)

// Accuracy is the fraction of predictions equal to the true label.
func Accuracy(yTrue, yPred []int) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("y_true and y_pred differ in length: %d vs %d", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, fmt.Errorf("cannot score an empty fold")
	}

	correct := 0
	for i, pred := range yPred {
		if pred == yTrue[i] {
			correct++
		}
	}

	return float64(correct) / float64(len(yTrue)), nil
}

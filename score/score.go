// Package score compares forecasts against actual values
package score

import (
	"errors"
	"fmt"
	"math"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Report holds the accuracy of a forecast against the actual values
type Report struct {
	MAE  float64 `json:"mean_absolute_error"`
	RMSE float64 `json:"root_mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
}

// Evaluate computes the mean absolute error, root mean squared error and mean average percent
// error of the forecast. Both slices must be non-empty and of equal length.
func Evaluate(actual, forecast []float64) (Report, error) {
	if len(actual) == 0 || len(forecast) == 0 {
		return Report{}, fmt.Errorf("got %d actual and %d forecast values, %w", len(actual), len(forecast), ErrResLenMismatch)
	}
	mae, err := MAE(forecast, actual)
	if err != nil {
		return Report{}, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mse, err := MSE(forecast, actual)
	if err != nil {
		return Report{}, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(forecast, actual)
	if err != nil {
		return Report{}, fmt.Errorf("unable to compute mean average percent error, %w", err)
	}

	return Report{
		MAE:  mae,
		RMSE: math.Sqrt(mse),
		MAPE: mape,
	}, nil
}

// MAE computes the mean absolute error. This is the same as sum(abs(y-yhat))/n.
// A score of 0 means a perfect match with no errors.
func MAE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	if len(actual) == 0 {
		return 0, nil
	}

	mae := 0.0
	for i := 0; i < len(actual); i++ {
		mae += math.Abs(actual[i] - predicted[i])
	}
	mae /= float64(len(actual))
	return mae, nil
}

// MSE computes the mean squared error. This is the same as sum((y-yhat)^2)/n.
// A score of 0 means a perfect match with no errors.
func MSE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	if len(actual) == 0 {
		return 0, nil
	}

	mse := 0.0
	for i := 0; i < len(actual); i++ {
		mse += math.Pow(actual[i]-predicted[i], 2.0)
	}
	mse /= float64(len(actual))
	return mse, nil
}

// MAPE calculates the mean average percent error. This is the same as sum(abs((y-yhat)/y))/n.
// Zero actual values are skipped but still counted in n.
func MAPE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	if len(actual) == 0 {
		return 0, nil
	}

	mape := 0.0
	for i := 0; i < len(actual); i++ {
		if actual[i] == 0 {
			continue
		}
		mape += math.Abs((actual[i] - predicted[i]) / actual[i])
	}
	mape /= float64(len(actual))
	return mape, nil
}

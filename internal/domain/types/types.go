// Package types contains the DTOs shared by the service and the HTTP API.
package types

import "time"

// Prediction is the service answer for one trip.
type Prediction struct {
	RequestID   string  `json:"request_id"`
	Fare        float64 `json:"fare"`
	TripKm      float64 `json:"trip_distance_km"`
	PickupCell  string  `json:"pickup_cell"`
	DropoffCell string  `json:"dropoff_cell"`
	// Features the model expected but the pipeline did not produce.
	FilledFeatures []string `json:"filled_features,omitempty"`
}

// TrainReport summarizes a training run.
type TrainReport struct {
	Loaded         int            `json:"loaded"`
	Dropped        map[string]int `json:"dropped"`
	TrainRows      int            `json:"train_rows"`
	ValidRows      int            `json:"valid_rows"`
	Features       []string       `json:"features"`
	Trees          int            `json:"trees"`
	TrainRMSE      float64        `json:"train_rmse"`
	ValidationRMSE float64        `json:"validation_rmse"`
	BaselineRMSE   float64        `json:"baseline_rmse"`
	Duration       time.Duration  `json:"duration"`
}

// Kept returns the number of rows that survived filtering.
func (r TrainReport) Kept() int { return r.TrainRows + r.ValidRows }

package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/nurpe/amc-schedule/internal/model"
)

// Fingerprint identifies a dataset together with the settings it was
// computed with. Equal inputs always give the same fingerprint.
func Fingerprint[P any](kind model.ScheduleKind, products []P, settings model.Settings) (string, error) {
	payload, err := json.Marshal(struct {
		Kind     model.ScheduleKind `json:"kind"`
		Products []P                `json:"products"`
		Settings model.Settings     `json:"settings"`
	}{kind, products, settings})
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

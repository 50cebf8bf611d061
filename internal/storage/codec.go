package storage

import (
	"encoding/json"
	"errors"

	"cellarium/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSnapshot(s model.SessionSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (model.SessionSnapshot, error) {
	var snapshot model.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.SessionSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.SessionSnapshot{}, err
	}
	return snapshot, nil
}

func EncodeMetricsHistory(history []model.MetricsPoint) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeMetricsHistory(data []byte) ([]model.MetricsPoint, error) {
	var history []model.MetricsPoint
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeRaceResult(r model.RaceResult) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRaceResult(data []byte) (model.RaceResult, error) {
	var result model.RaceResult
	if err := json.Unmarshal(data, &result); err != nil {
		return model.RaceResult{}, err
	}
	if err := checkVersion(result.VersionedRecord); err != nil {
		return model.RaceResult{}, err
	}
	return result, nil
}

func EncodeRuleSummary(s model.RuleSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeRuleSummary(data []byte) (model.RuleSummary, error) {
	var summary model.RuleSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RuleSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.RuleSummary{}, err
	}
	return summary, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

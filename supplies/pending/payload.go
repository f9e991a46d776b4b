package pending

import (
	"encoding/json"
	"fmt"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/delivery"
)

type itemsPayload struct {
	Items []catalog.Item `json:"items"`
}

func encodeItems(items []catalog.Item) (string, error) {
	data, err := json.Marshal(itemsPayload{Items: items})
	if err != nil {
		return "", fmt.Errorf("failed to encode items payload: %w", err)
	}
	return string(data), nil
}

func decodeItems(payload string) ([]catalog.Item, error) {
	var p itemsPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode items payload: %w", err)
	}
	return p.Items, nil
}

func encodeCheque(artifact delivery.ChequeArtifact) (string, error) {
	data, err := json.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("failed to encode cheque payload: %w", err)
	}
	return string(data), nil
}

func decodeCheque(payload string) (delivery.ChequeArtifact, error) {
	var artifact delivery.ChequeArtifact
	if err := json.Unmarshal([]byte(payload), &artifact); err != nil {
		return delivery.ChequeArtifact{}, fmt.Errorf("failed to decode cheque payload: %w", err)
	}
	return artifact, nil
}

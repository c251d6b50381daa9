package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/clubfridge/internal/model"
)

// marshalPrices converts an article's price list to JSON TEXT for storage.
// Unit prices are encoded as decimal strings, never floats.
func marshalPrices(prices []model.Price) (string, error) {
	if prices == nil {
		prices = []model.Price{}
	}
	data, err := json.Marshal(prices)
	if err != nil {
		return "", fmt.Errorf("marshal prices: %w", err)
	}
	return string(data), nil
}

// unmarshalPrices parses JSON TEXT to a price list.
func unmarshalPrices(data string) ([]model.Price, error) {
	if data == "" || data == "[]" {
		return []model.Price{}, nil
	}
	var prices []model.Price
	if err := json.Unmarshal([]byte(data), &prices); err != nil {
		return nil, fmt.Errorf("unmarshal prices: %w", err)
	}
	return prices, nil
}

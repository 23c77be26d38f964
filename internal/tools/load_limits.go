package tools

import (
	"fmt"
	"os"

	"ExchangeQuotesService/internal/model"

	"gopkg.in/yaml.v3"
)

// LoadLimits reads a YAML table of per-currency amount limits:
//
//	btc: {min: 0.001, max: 10}
//
// Every supported currency must be listed.
func LoadLimits(path string) (model.Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]model.Limit
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	limits := make(model.Limits, len(raw))
	for name, l := range raw {
		c, err := model.ParseCurrency(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if l.Min < 0 || l.Max < l.Min {
			return nil, fmt.Errorf("%s: bad limit for %s: min %v max %v", path, c, l.Min, l.Max)
		}
		limits[c] = l
	}
	for _, c := range model.Currencies() {
		if _, ok := limits[c]; !ok {
			return nil, fmt.Errorf("%s: no limit for %s", path, c)
		}
	}
	return limits, nil
}

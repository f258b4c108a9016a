// Package scoring evaluates a declarative formula of weighted free-text
// conditions against a trailing window of bars.
package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Category string

const (
	Trend    Category = "trend"
	Momentum Category = "momentum"
	Volume   Category = "volume"
	Risk     Category = "risk"
	Market   Category = "market"
)

// Categories lists the categories in evaluation and report order.
var Categories = []Category{Trend, Momentum, Volume, Risk, Market}

// Rule is one weighted condition as authored.
type Rule struct {
	Condition string  `yaml:"condition" json:"condition"`
	Score     float64 `yaml:"score" json:"score"`
}

// FormulaSpec is the rule set produced by the external formula author.
// JSON documents parse too, since JSON is valid YAML.
type FormulaSpec struct {
	Name          string              `yaml:"name,omitempty" json:"name,omitempty"`
	Categories    map[Category][]Rule `yaml:"categories" json:"categories"`
	Penalties     []Rule              `yaml:"penalties" json:"penalties"`
	BuyThreshold  float64             `yaml:"buy_threshold" json:"buy_threshold"`
	SellThreshold float64             `yaml:"sell_threshold" json:"sell_threshold"`
}

func LoadFormula(path string) (FormulaSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FormulaSpec{}, err
	}
	spec, err := ParseFormula(b)
	if err != nil {
		return FormulaSpec{}, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

func ParseFormula(b []byte) (FormulaSpec, error) {
	var spec FormulaSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return FormulaSpec{}, fmt.Errorf("parse formula: %w", err)
	}
	return spec, nil
}

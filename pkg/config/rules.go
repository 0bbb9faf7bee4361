// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/flatr/pkg/sanitize"
)

// 🔌 RuleParser is the interface for rule-file parsers
type RuleParser interface {
	// 📝 Parse parses an ordered rule list from bytes
	Parse(ctx context.Context, data []byte) ([]sanitize.Rule, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ ruleParsers is a list of available parsers
	ruleParsers []RuleParser
)

// 📝 RegisterRuleParser registers a parser
func RegisterRuleParser(p RuleParser) {
	ruleParsers = append(ruleParsers, p)
}

// 🎯 GetRuleParser returns a parser that can handle the given file
func GetRuleParser(filename string) RuleParser {
	for _, p := range ruleParsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🎯 LoadRules loads an ordered sanitization rule list from a file. The
// format is chosen by extension: .json, .yaml/.yml, or .hcl.
func LoadRules(ctx context.Context, path string) ([]sanitize.Rule, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading sanitization rules")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading rules file: %w", err)
	}

	p := GetRuleParser(path)
	if p == nil {
		return nil, errors.Errorf("no rule parser found for file: %s", path)
	}

	rules, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing rules file %s: %w", path, err)
	}

	logger.Debug().Int("rules", len(rules)).Msg("loaded sanitization rules")
	return rules, nil
}

// 🔧 JSONRuleParser parses a JSON array of rule records
type JSONRuleParser struct{}

func init() {
	RegisterRuleParser(&JSONRuleParser{})
}

func (p *JSONRuleParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".json")
}

func (p *JSONRuleParser) Parse(ctx context.Context, data []byte) ([]sanitize.Rule, error) {
	var rules []sanitize.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return rules, nil
}

// 🔧 YAMLRuleParser parses a YAML sequence of rule records
type YAMLRuleParser struct{}

func init() {
	RegisterRuleParser(&YAMLRuleParser{})
}

func (p *YAMLRuleParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLRuleParser) Parse(ctx context.Context, data []byte) ([]sanitize.Rule, error) {
	var rules []sanitize.Rule
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rules); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return rules, nil
}

// 🔧 HCLRuleParser parses rule {} blocks from an HCL file
type HCLRuleParser struct{}

func init() {
	RegisterRuleParser(&HCLRuleParser{})
}

// hclRuleFile mirrors the HCL surface:
//
//	rule {
//	  pattern     = " (USA)"
//	  replacement = ""
//	  is_regex    = false
//	}
type hclRuleFile struct {
	Rules []hclRule `hcl:"rule,block"`
}

type hclRule struct {
	Pattern     string `hcl:"pattern"`
	Replacement string `hcl:"replacement"`
	IsRegex     bool   `hcl:"is_regex,optional"`
}

func (p *HCLRuleParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

func (p *HCLRuleParser) Parse(ctx context.Context, data []byte) ([]sanitize.Rule, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "rules.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var file hclRuleFile
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &file)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	rules := make([]sanitize.Rule, 0, len(file.Rules))
	for _, r := range file.Rules {
		rules = append(rules, sanitize.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
			IsRegex:     r.IsRegex,
		})
	}
	return rules, nil
}

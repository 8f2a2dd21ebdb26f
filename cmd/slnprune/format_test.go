package main

import (
	"strings"
	"testing"

	"github.com/fatih/color"

	"slnprune/internal/errors"
	"slnprune/internal/prune"
	"slnprune/internal/workspace"
)

func init() {
	color.NoColor = true
}

func sampleResult() *prune.Result {
	return &prune.Result{
		Success:            true,
		TargetType:         "Shop.Orders.OrderService",
		OutputManifestPath: "/tmp/Shop.Pruned/Shop.sln",
		IncludedTypes:      []string{"Shop.Data.Repository`1", "Shop.Orders.OrderService"},
		IncludedFiles:      []string{"src/Data/Repository.cs", "src/Orders/OrderService.cs"},
		IncludedProjects:   []string{"Data", "Orders"},
		DependencyCount:    1,
		Rounds:             2,
		BytesWritten:       2048,
		Warnings:           []workspace.Warning{{File: "src/Broken.cs", Message: "syntax errors found"}},
	}
}

func TestFormatResponse_JSON(t *testing.T) {
	out, err := FormatResponse(sampleResult(), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"success": true`, `"dependencyCount": 1`, `"includedProjects": [`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON output missing %s:\n%s", want, out)
		}
	}
}

func TestFormatResponse_YAML(t *testing.T) {
	out, err := FormatResponse(sampleResult(), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"success: true", "targetType: Shop.Orders.OrderService", "- Orders"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatResponse_Human(t *testing.T) {
	out, err := FormatResponse(sampleResult(), FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"Pruned around Shop.Orders.OrderService",
		"* Shop.Orders.OrderService",
		"Projects (2):",
		"2.0 KiB",
		"! src/Broken.cs: syntax errors found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatResponse_HumanFailure(t *testing.T) {
	res := &prune.Result{ErrorCode: errors.TypeNotFound, Error: `type "X" was not found`}

	out, err := FormatResponse(res, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "TYPE_NOT_FOUND") || !strings.Contains(out, `type "X" was not found`) {
		t.Errorf("failure output = %q", out)
	}
}

func TestFormatResponse_Types(t *testing.T) {
	res := &prune.TypesResult{
		Success: true,
		Types: []prune.TypeInfo{
			{Name: "Shop.Orders.OrderService", Kind: "class", Projects: []string{"Orders"}},
			{Name: "Shop.Data.IRepository", Kind: "interface", Projects: []string{"Data"}},
		},
	}
	out, err := FormatResponse(res, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "interface") || !strings.Contains(out, "2 types") {
		t.Errorf("types output = %q", out)
	}
}

func TestOutputFormat_Validate(t *testing.T) {
	tests := []struct {
		format  OutputFormat
		wantErr bool
	}{
		{FormatJSON, false},
		{FormatHuman, false},
		{FormatYAML, false},
		{"xml", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if err := tt.format.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := FormatResponse(sampleResult(), "xml"); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("FormatResponse(xml) error = %v", err)
	}
}

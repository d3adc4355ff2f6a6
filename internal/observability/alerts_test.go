package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertFile struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestAnalyticsAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "maison.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var file alertFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	if len(file.Groups) == 0 {
		t.Fatal("expected at least one alert group")
	}

	var analyticsGroup *alertGroup
	for i := range file.Groups {
		if file.Groups[i].Name == "analytics" {
			analyticsGroup = &file.Groups[i]
			break
		}
	}
	if analyticsGroup == nil {
		t.Fatal("analytics alert group missing")
	}

	expected := map[string]struct {
		severity string
		runbook  string
	}{
		"StorefrontBreakerOpen":    {severity: "critical", runbook: "docs/runbook.md#storefront-breaker-open"},
		"StorefrontUpstreamErrors": {severity: "warning", runbook: "docs/runbook.md#storefront-upstream-errors"},
		"DashboardWarmupFailing":   {severity: "warning", runbook: "docs/runbook.md#dashboard-warmup-failing"},
		"AnalyticsHighLatency":     {severity: "warning", runbook: "docs/runbook.md#analytics-high-latency"},
	}

	if len(analyticsGroup.Rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(analyticsGroup.Rules))
	}

	for _, rule := range analyticsGroup.Rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != want.severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["runbook"] != want.runbook {
			t.Fatalf("rule %s runbook mismatch: %s", rule.Alert, rule.Annotations["runbook"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if !strings.Contains(rule.Expr, "maison_") {
			t.Fatalf("rule %s must query a maison_ metric: %s", rule.Alert, rule.Expr)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
	}
}

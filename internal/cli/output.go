package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goroute/internal/rules"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintRuleSets outputs rulesets in the specified format
func PrintRuleSets(sets []rules.RuleSet, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(sets)
	case FormatYAML:
		return printYAML(sets)
	case FormatTable:
		return printTable(sets)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintRuleSet outputs a single ruleset in the specified format. The table
// form adds a second table listing the rules in evaluation order.
func PrintRuleSet(rs *rules.RuleSet, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(rs)
	case FormatYAML:
		return printYAML(rs)
	case FormatTable:
		if err := printTable([]rules.RuleSet{*rs}); err != nil {
			return err
		}
		return printRulesTable(rs.Rules)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	// Wrap slices in a "rulesets" key for consistency with the API
	if sets, ok := data.([]rules.RuleSet); ok {
		return encoder.Encode(map[string][]rules.RuleSet{"rulesets": sets})
	}
	return encoder.Encode(data)
}

func printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTable(sets []rules.RuleSet) error {
	table := tablewriter.NewWriter(os.Stdout)

	table.Header("ID", "Nickname", "Stub", "Fallback", "Rules", "SubIDs", "Updated At")

	for _, rs := range sets {
		fallback := rs.FallbackURL
		if len(fallback) > 40 {
			fallback = fallback[:37] + "..."
		}
		subIDs := "no"
		if rs.PassSubIDs {
			subIDs = "yes"
		}

		table.Append(
			fmt.Sprint(rs.ID),
			rs.Nickname,
			rs.Stub,
			fallback,
			fmt.Sprint(len(rs.Rules)),
			subIDs,
			rs.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}

	return table.Render()
}

func printRulesTable(rs []rules.Rule) error {
	if len(rs) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)

	table.Header("Pos", "ID", "Key", "Op", "Value", "Redirect To", "SubIDs")

	for _, r := range rs {
		target := r.RedirectTo
		if len(target) > 40 {
			target = target[:37] + "..."
		}
		subIDs := "no"
		if r.PassSubIDs {
			subIDs = "yes"
		}

		table.Append(
			fmt.Sprint(r.Position),
			fmt.Sprint(r.ID),
			string(r.Key),
			string(r.Op),
			r.Value,
			target,
			subIDs,
		)
	}

	return table.Render()
}

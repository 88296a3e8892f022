package quality

import (
	"fmt"
	"sort"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
)

type targetStrategy int

const (
	targetSeoMeta targetStrategy = iota
	targetIntro
	targetFirstSection
	targetAllSections
)

type repairRule struct {
	code     string
	action   string
	strategy targetStrategy
}

func repairRules(cfg Config) map[string]repairRule {
	return map[string]repairRule{
		CheckPrimaryInTitleTag: {
			"PRIMARY_MISSING_TITLE", "Include primary keyword in title_tag exactly once.", targetSeoMeta,
		},
		CheckPrimaryInIntro: {
			"PRIMARY_MISSING_INTRO", "Rewrite intro paragraph to include primary keyword naturally.", targetIntro,
		},
		CheckPrimaryInH2: {
			"PRIMARY_MISSING_H2", "Include primary keyword in at least one H2 heading.", targetFirstSection,
		},
		CheckHeadingHierarchyValid: {
			"HEADING_HIERARCHY", "Fix heading structure: exactly one H1, H3 only under H2.", targetAllSections,
		},
		CheckWordCountWithinTolerance: {
			"WORD_COUNT", "Expand or trim content to fall within target tolerance.", targetAllSections,
		},
		CheckMetaDescriptionLengthValid: {
			"META_DESCRIPTION_LENGTH",
			fmt.Sprintf("Rewrite meta description to %d-%d chars with primary keyword.", cfg.MetaDescriptionMin, cfg.MetaDescriptionMax),
			targetSeoMeta,
		},
		CheckInternalLinksCountValid: {
			"INTERNAL_LINKS_COUNT",
			fmt.Sprintf("Adjust internal link suggestions to %d-%d total.", cfg.InternalLinksMin, cfg.InternalLinksMax),
			targetSeoMeta,
		},
		CheckExternalRefsCountValid: {
			"EXTERNAL_REFS_COUNT",
			fmt.Sprintf("Adjust external references to %d-%d total.", cfg.ExternalRefsMin, cfg.ExternalRefsMax),
			targetSeoMeta,
		},
		CheckOutputSchemaValid: {
			"SCHEMA_INVALID", "Fix output to pass SeoArticleOutput schema validation.", targetAllSections,
		},
	}
}

// BuildRepairSpec turns the failed checks of report into repair issues and
// instructions, in check order. Checks without a rule are ignored. A fully
// passing report yields an empty spec.
func BuildRepairSpec(report model.ValidationReport, outline *model.Outline, cfg Config) model.RepairSpec {
	rules := repairRules(cfg)
	spec := model.RepairSpec{
		Issues:             []model.RepairIssue{},
		Instructions:       []string{},
		MustEditSectionIDs: []string{},
	}
	targets := make(map[string]struct{})

	for _, check := range report.Checks {
		if check.Passed {
			continue
		}
		rule, ok := rules[check.Name]
		if !ok {
			continue
		}
		ids := resolveTargets(rule.strategy, outline)
		for _, id := range ids {
			targets[id] = struct{}{}
		}
		spec.Issues = append(spec.Issues, model.RepairIssue{
			Code:             rule.code,
			Message:          "Validation failed: " + check.Name,
			TargetSectionIDs: ids,
			RequiredAction:   rule.action,
		})
		spec.Instructions = append(spec.Instructions, fmt.Sprintf("[%s] %s", rule.code, rule.action))
	}

	for id := range targets {
		spec.MustEditSectionIDs = append(spec.MustEditSectionIDs, id)
	}
	sort.Strings(spec.MustEditSectionIDs)
	return spec
}

func resolveTargets(strategy targetStrategy, outline *model.Outline) []string {
	switch strategy {
	case targetSeoMeta:
		return []string{model.SectionSeoMeta}
	case targetIntro:
		return []string{model.SectionIntro}
	}

	if outline == nil {
		return []string{}
	}
	ids := outline.SectionIDs()
	if strategy == targetFirstSection && len(ids) > 0 {
		return ids[:1]
	}
	return ids
}

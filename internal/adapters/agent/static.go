package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/biomerkin/biomerkin/internal/core"
)

// StaticClient produces deterministic local payloads per stage. It
// stands in for the remote compute units during development, dry runs
// and tests; the payload shapes mirror what the deployed stages return.
type StaticClient struct{}

// NewStaticClient creates a static client.
func NewStaticClient() *StaticClient {
	return &StaticClient{}
}

// Name returns the adapter identifier.
func (c *StaticClient) Name() string {
	return "static"
}

// Invoke returns the canned payload for the requested stage.
func (c *StaticClient) Invoke(_ context.Context, req core.StageRequest) (json.RawMessage, error) {
	var payload interface{}
	switch req.Stage {
	case core.StageGenomics:
		payload = genomicsPayload(req.InputPayload)
	case core.StageProteomics:
		payload = map[string]interface{}{
			"agent": "ProteomicsAgent",
			"proteins": []map[string]interface{}{
				{"name": "BRCA1_variant", "function": "DNA repair", "structural_impact": "destabilizing"},
			},
			"pathways": []string{"homologous recombination", "cell cycle checkpoint"},
		}
	case core.StageLiterature:
		payload = map[string]interface{}{
			"agent": "LiteratureAgent",
			"articles": []map[string]interface{}{
				{"pmid": "31285513", "title": "BRCA1 variant pathogenicity in hereditary cancer", "relevance": 0.92},
				{"pmid": "28122243", "title": "Homologous recombination deficiency as a biomarker", "relevance": 0.81},
			},
			"consensus_findings": []string{"variant is clinically actionable"},
		}
	case core.StageDrug:
		payload = map[string]interface{}{
			"agent": "DrugAgent",
			"candidates": []map[string]interface{}{
				{"name": "olaparib", "mechanism": "PARP inhibition", "trial_phase": "approved"},
				{"name": "talazoparib", "mechanism": "PARP inhibition", "trial_phase": "approved"},
			},
		}
	case core.StageDecision:
		payload = map[string]interface{}{
			"agent":            "DecisionAgent",
			"summary":          "Findings across all stages support an actionable biomarker profile.",
			"upstream_stages":  len(req.PriorResults),
			"recommendations":  []string{"confirm variant with orthogonal assay", "evaluate PARP inhibitor eligibility"},
			"confidence_level": 0.87,
		}
	default:
		return nil, core.ErrState(core.CodeInvalidState, "static client has no payload for stage "+string(req.Stage))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, core.ErrState(core.CodeInvalidState, "static payload is not serializable").WithCause(err)
	}
	return raw, nil
}

func genomicsPayload(input string) map[string]interface{} {
	gc := 0
	for _, r := range strings.ToUpper(input) {
		if r == 'G' || r == 'C' {
			gc++
		}
	}
	gcContent := 0.0
	if len(input) > 0 {
		gcContent = float64(gc) / float64(len(input))
	}
	return map[string]interface{}{
		"agent":           "GenomicsAgent",
		"sequence_length": len(input),
		"gc_content":      fmt.Sprintf("%.3f", gcContent),
		"genes": []map[string]interface{}{
			{"symbol": "BRCA1", "chromosome": "17", "confidence": 0.94},
		},
		"mutations": []map[string]interface{}{
			{"type": "missense", "position": 68, "clinical_significance": "likely pathogenic"},
		},
	}
}

//go:build ignore

// Package main generates a synthetic medical corpus for benchmarking.
// Usage: go run scripts/generate-test-corpus.go -docs 500 -output testdata/bench
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numDocs   = flag.Int("docs", 500, "Number of documents to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// docRecord mirrors the loader's JSONL document format.
type docRecord struct {
	DocumentID    string     `json:"document_id"`
	Text          string     `json:"text"`
	Source        string     `json:"source"`
	SectionPath   string     `json:"section_path,omitempty"`
	Pages         string     `json:"pages,omitempty"`
	AdverseEvents []aeRecord `json:"adverse_events,omitempty"`
}

// aeRecord is one tabulated adverse-event row.
type aeRecord struct {
	Event               string  `json:"event"`
	InterventionN       int     `json:"intervention_n"`
	InterventionPercent float64 `json:"intervention_percent"`
	Serious             bool    `json:"serious"`
}

var adverseEventNames = []string{
	"pneumothorax", "valve migration", "COPD exacerbation",
	"hemoptysis", "pneumonia", "respiratory failure",
}

var interventions = []string{
	"endobronchial valve placement", "lung volume reduction surgery",
	"Zephyr valve treatment", "Spiration valve system implantation",
	"bronchoscopic thermal vapor ablation", "pulmonary rehabilitation",
}

var outcomes = []string{
	"FEV1 improved by %d%% at twelve months",
	"residual volume decreased by %d mL",
	"six-minute walk distance increased by %d meters",
	"St. George's Respiratory Questionnaire score improved by %d points",
	"target lobe volume reduction reached %d%%",
}

var adverseEvents = []string{
	"pneumothorax occurred in %d of %d patients",
	"valve migration was observed in %d of %d cases",
	"COPD exacerbation requiring hospitalization affected %d of %d participants",
	"hemoptysis was reported in %d of %d subjects",
	"pneumonia distal to the valve developed in %d of %d patients",
}

var chapterTopics = []string{
	"pleural effusion", "emphysema", "chronic obstructive pulmonary disease",
	"interstitial lung disease", "pulmonary hypertension", "bronchiectasis",
	"pneumothorax management", "lung transplantation",
}

var chapterSentences = []string{
	"Management of %s begins with a careful assessment of symptom burden and physiology.",
	"The differential diagnosis of %s includes infectious, malignant, and inflammatory causes.",
	"Imaging plays a central role in staging %s and selecting candidates for intervention.",
	"Long-term outcomes in %s depend on adherence to therapy and smoking cessation.",
	"Guidelines recommend multidisciplinary review before invasive treatment of %s.",
}

func main() {
	flag.Parse()
	rand.Seed(*seed)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	path := filepath.Join(*outputDir, "corpus.jsonl")
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating corpus file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := 0; i < *numDocs; i++ {
		var rec docRecord
		// Two trials for every chapter, roughly matching a real corpus.
		if i%3 != 2 {
			rec = generateTrial(i)
		} else {
			rec = generateChapter(i)
		}
		if err := enc.Encode(rec); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing record: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d documents in %s\n", *numDocs, path)
}

func generateTrial(index int) docRecord {
	enrolled := 40 + rand.Intn(200)
	affected := 1 + rand.Intn(enrolled/4)

	var sb strings.Builder
	fmt.Fprintf(&sb, "A randomized controlled trial of %s enrolled %d patients with severe emphysema. ",
		interventions[rand.Intn(len(interventions))], enrolled)
	fmt.Fprintf(&sb, outcomes[rand.Intn(len(outcomes))], 5+rand.Intn(40))
	sb.WriteString(" in the treatment group. ")
	fmt.Fprintf(&sb, adverseEvents[rand.Intn(len(adverseEvents))], affected, enrolled)
	sb.WriteString(" during follow-up.")

	var aes []aeRecord
	for i := 0; i < 1+rand.Intn(3); i++ {
		n := 1 + rand.Intn(enrolled/5)
		aes = append(aes, aeRecord{
			Event:               adverseEventNames[rand.Intn(len(adverseEventNames))],
			InterventionN:       n,
			InterventionPercent: float64(n) / float64(enrolled) * 100,
			Serious:             rand.Intn(4) == 0,
		})
	}

	return docRecord{
		DocumentID:    fmt.Sprintf("NCT%07d", 1000000+index),
		Text:          sb.String(),
		Source:        "trial",
		AdverseEvents: aes,
	}
}

func generateChapter(index int) docRecord {
	topic := chapterTopics[rand.Intn(len(chapterTopics))]

	var sentences []string
	for _, tmpl := range chapterSentences {
		sentences = append(sentences, fmt.Sprintf(tmpl, topic))
	}
	rand.Shuffle(len(sentences), func(i, j int) {
		sentences[i], sentences[j] = sentences[j], sentences[i]
	})

	chapter := 1 + index%40
	firstPage := 1 + rand.Intn(800)

	return docRecord{
		DocumentID:  fmt.Sprintf("CHAP-%02d-%d", chapter, index),
		Text:        strings.Join(sentences, " "),
		Source:      "chapter",
		SectionPath: fmt.Sprintf("Chapter %d > %s", chapter, topic),
		Pages:       fmt.Sprintf("%d-%d", firstPage, firstPage+2+rand.Intn(10)),
	}
}

package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlit/medsearch/internal/chunk"
)

func writeDocFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDocuments_JSONL(t *testing.T) {
	dir := t.TempDir()
	writeDocFile(t, dir, "trials.jsonl",
		`{"document_id":"NCT001","text":"Pneumothorax occurred in 34 patients.","source":"trial","pages":[12]}
{"document_id":"NCT002","text":"FEV1 improved at 12 months.","source":"trial"}
`)

	docs, err := LoadDocuments(dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "NCT001", docs[0].ID)
	assert.Equal(t, chunk.SourceTrial, docs[0].Source)
	assert.Equal(t, []int{12}, docs[0].Pages)
	assert.Equal(t, "NCT002", docs[1].ID)
}

func TestLoadDocuments_ParsesAdverseEvents(t *testing.T) {
	dir := t.TempDir()
	writeDocFile(t, dir, "trial.jsonl",
		`{"document_id":"NCT001","text":"Valve placement trial.","source":"trial","adverse_events":[{"event":"pneumothorax","intervention_n":34,"intervention_percent":26.6,"serious":true}]}
`)

	docs, err := LoadDocuments(dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.Len(t, docs[0].AdverseEvents, 1)
	ae := docs[0].AdverseEvents[0]
	assert.Equal(t, "pneumothorax", ae.Event)
	require.NotNil(t, ae.InterventionN)
	assert.Equal(t, 34, *ae.InterventionN)
	require.NotNil(t, ae.InterventionPercent)
	assert.Equal(t, 26.6, *ae.InterventionPercent)
	require.NotNil(t, ae.Serious)
	assert.True(t, *ae.Serious)
	assert.Nil(t, ae.ControlN)
}

func TestLoadDocuments_JSONSingleAndArray(t *testing.T) {
	dir := t.TempDir()
	writeDocFile(t, dir, "chapter.json",
		`{"document_id":"CHAP-12","text":"Management of pleural effusion.","source":"chapter","section_path":["pleura","effusion"]}`)
	writeDocFile(t, dir, "extra.json",
		`[{"document_id":"NCT003","text":"Activity measured by accelerometer."},{"document_id":"NCT004","text":"Six minute walk distance."}]`)

	docs, err := LoadDocuments(dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// Lexical file name order: chapter.json before extra.json.
	assert.Equal(t, "CHAP-12", docs[0].ID)
	assert.Equal(t, chunk.SourceChapter, docs[0].Source)
	assert.Equal(t, []string{"pleura", "effusion"}, docs[0].SectionPath)
	assert.Equal(t, "NCT003", docs[1].ID)
}

func TestLoadDocuments_SkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	writeDocFile(t, dir, "docs.jsonl",
		`{"document_id":"NCT001","text":"valid record"}
not json at all
{"document_id":"","text":"missing id"}
{"document_id":"NCT005"}
{"document_id":"NCT002","text":"another valid record"}
`)

	docs, err := LoadDocuments(dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "NCT001", docs[0].ID)
	assert.Equal(t, "NCT002", docs[1].ID)
}

func TestLoadDocuments_DefaultsSourceToTrial(t *testing.T) {
	dir := t.TempDir()
	writeDocFile(t, dir, "docs.jsonl", `{"document_id":"NCT001","text":"no source field"}`+"\n")

	docs, err := LoadDocuments(dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, chunk.SourceTrial, docs[0].Source)
}

func TestLoadDocuments_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeDocFile(t, dir, "notes.txt", "ignore me")
	writeDocFile(t, dir, "docs.jsonl", `{"document_id":"NCT001","text":"ok"}`+"\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	docs, err := LoadDocuments(dir, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestLoadDocuments_MissingDir(t *testing.T) {
	_, err := LoadDocuments(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, err)
}

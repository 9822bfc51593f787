package models

import "strings"

// Params is the per-call configuration snapshot resolved from the parameter
// store. Pipelines receive it explicitly instead of reading ambient state.
type Params struct {
	LLMModel          string   `json:"llm_model"`
	EmbedModel        string   `json:"embed_model"`
	ChunkSize         int      `json:"chunk_size"`
	ChunkOverlap      int      `json:"chunk_overlap"`
	TopK              int      `json:"top_k"`
	DistanceThreshold float64  `json:"distance_threshold"`
	ExcludedExts      []string `json:"excluded_exts"`
	CronReindex       string   `json:"cron_reindex"`
	DataDir           string   `json:"data_dir"`
	SystemDirective   string   `json:"system_directive"`
	Models            []string `json:"models"`
}

// ExcludedSet returns the exclusion list as a lowercase extension set,
// each entry with a leading dot.
func (p Params) ExcludedSet() map[string]bool {
	set := make(map[string]bool, len(p.ExcludedExts))
	for _, ext := range p.ExcludedExts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

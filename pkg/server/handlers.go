package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/osmatelier/osmatelier/pkg/monitoring"
	"github.com/osmatelier/osmatelier/pkg/pbf"
)

// handleIndex serves the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, nil); err != nil {
		s.logger.Error("failed to render index", "error", err)
	}
}

// highwayCount is one row of the highway breakdown table.
type highwayCount struct {
	Class string `json:"class"`
	Count int64  `json:"count"`
}

// resultData feeds the summary page template.
type resultData struct {
	FileName   string
	Summary    *pbf.Summary
	Duration   string
	NodeLimit  int
	HasBounds  bool
	CenterLat  float64
	CenterLon  float64
	Highways   []highwayCount
	SampleJSON template.JS
}

// summarizeUpload receives the multipart extract, spools it to disk, and
// runs a summary pass over it.
func (s *Server) summarizeUpload(r *http.Request) (*pbf.Summary, string, int, error) {
	file, header, err := r.FormFile("extract")
	if err != nil {
		return nil, "", 0, fmt.Errorf("missing extract file: %w", err)
	}
	defer file.Close()

	nodeLimit := pbf.DefaultSampleLimit
	if v := r.FormValue("node_limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid node_limit %q", v)
		}
		nodeLimit = n
	}

	// The decoder needs a seekable file, so spool the upload to disk.
	tmp, err := os.CreateTemp("", "extract-*.osm.pbf")
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, file)
	tmp.Close()
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to spool upload: %w", err)
	}

	start := time.Now()
	summary, err := pbf.SummarizeFile(r.Context(), tmpPath, pbf.Options{
		SampleLimit: nodeLimit,
		Progress: func(nodes int64) {
			s.logger.Debug("decoding extract", "file", header.Filename, "nodes", nodes)
		},
	})
	monitoring.RecordPBFUpload(size, time.Since(start), err == nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to decode extract: %w", err)
	}
	monitoring.RecordPBFElements(summary.Nodes, summary.Ways, summary.Relations)

	s.logger.Info("summarized extract",
		"file", header.Filename,
		"bytes", size,
		"nodes", summary.Nodes,
		"ways", summary.Ways,
		"relations", summary.Relations,
		"duration", summary.Duration)

	return summary, header.Filename, nodeLimit, nil
}

// uploadStatus maps a summarize failure to an HTTP status. An upload that
// tripped the size cap is a 413, not a generic bad request.
func uploadStatus(err error) int {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// sortedHighways flattens the highway histogram, most common first.
func sortedHighways(counts map[string]int64) []highwayCount {
	rows := make([]highwayCount, 0, len(counts))
	for class, count := range counts {
		rows = append(rows, highwayCount{Class: class, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Class < rows[j].Class
	})
	return rows
}

// handleUpload renders the HTML summary page for an uploaded extract.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	summary, name, nodeLimit, err := s.summarizeUpload(r)
	if err != nil {
		monitoring.RecordError("upload", "decode")
		http.Error(w, err.Error(), uploadStatus(err))
		return
	}

	data := resultData{
		FileName:   name,
		Summary:    summary,
		Duration:   summary.Duration.Round(time.Millisecond).String(),
		NodeLimit:  nodeLimit,
		Highways:   sortedHighways(summary.HighwayCounts),
		SampleJSON: template.JS("[]"),
	}

	if summary.Bounds != nil {
		data.HasBounds = true
		center := summary.Bounds.Center()
		data.CenterLat = center.Latitude
		data.CenterLon = center.Longitude

		sample, err := json.Marshal(summary.SampleNodes)
		if err != nil {
			http.Error(w, "failed to encode sample nodes", http.StatusInternalServerError)
			return
		}
		data.SampleJSON = template.JS(sample)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := resultTemplate.Execute(w, data); err != nil {
		s.logger.Error("failed to render summary page", "error", err)
	}
}

// summaryResponse is the JSON shape of the summary API.
type summaryResponse struct {
	FileName string       `json:"file_name"`
	*pbf.Summary
	Highways []highwayCount `json:"highways"`
}

// handleSummaryAPI returns the extract summary as JSON.
func (s *Server) handleSummaryAPI(w http.ResponseWriter, r *http.Request) {
	summary, name, _, err := s.summarizeUpload(r)
	if err != nil {
		monitoring.RecordError("api_summary", "decode")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(uploadStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summaryResponse{
		FileName: name,
		Summary:  summary,
		Highways: sortedHighways(summary.HighwayCounts),
	}); err != nil {
		s.logger.Error("failed to encode summary response", "error", err)
	}
}

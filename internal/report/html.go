package report

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/llehouerou/mbrate/internal/pipeline"
)

var csvHeader = []string{
	"file", "status", "artist", "title", "duration",
	"mbid", "release_group_mbid", "fallback", "rating", "votes",
	"cover", "exotic_tags", "removed_tags", "message",
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>MusicBrainz rating report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; font-size: 0.9em; }
th { background: #f0f0f0; }
tr.status-error td { background: #fdecea; }
tr.status-not-found td { background: #fff8e1; }
.meta { color: #666; margin-bottom: 1em; }
.toolbar { margin-bottom: 1em; }
.toolbar input { padding: 6px 10px; border: 1px solid #ccc; border-radius: 4px; min-width: 260px; }
</style>
</head>
<body>
<h1>MusicBrainz rating report</h1>
<p class="meta">Generated {{.GeneratedAt}} &middot; Files: {{.Total}} &middot; Tagged: {{.OK}} &middot;
Restored: {{.Restored}} &middot; Cleaned: {{.Cleaned}} &middot; Unrated: {{.NotFound}} &middot;
Errors: {{.Errors}} &middot; Skipped: {{.Skipped}} &middot; Average rating: {{.AvgRating}}</p>
<div class="toolbar">
<input id="q" type="search" placeholder="Filter (file, artist, title, status, MBID)">
<a download="mbrate-report.csv" href="data:text/csv;base64,{{.CSV}}">Download CSV</a>
</div>
<table id="tbl">
<thead>
<tr>
<th>File</th><th>Status</th><th>Artist</th><th>Title</th><th>Duration</th>
<th>Rating</th><th>Votes</th><th>Fallback</th><th>Cover</th>
<th>Exotic tags</th><th>Removed</th><th>Message</th>
</tr>
</thead>
<tbody>
{{range .Rows}}
<tr class="status-{{.Status}}">
<td>{{.File}}</td><td>{{.Status}}</td><td>{{.Artist}}</td><td>{{.Title}}</td>
<td>{{.Duration}}</td><td>{{.Rating}}</td><td>{{.Votes}}</td><td>{{.Fallback}}</td>
<td>{{.Cover}}</td><td>{{.Exotic}}</td><td>{{.Removed}}</td><td>{{.Message}}</td>
</tr>
{{end}}
</tbody>
</table>
<script>
(function(){
  var q = document.getElementById('q');
  var rows = Array.prototype.slice.call(document.querySelectorAll('#tbl tbody tr'));
  q.addEventListener('input', function(){
    var needle = q.value.toLowerCase();
    rows.forEach(function(tr){
      tr.style.display = !needle || tr.innerText.toLowerCase().indexOf(needle) >= 0 ? '' : 'none';
    });
  });
})();
</script>
</body>
</html>
`

type htmlRow struct {
	File     string
	Status   string
	Artist   string
	Title    string
	Duration string
	Rating   string
	Votes    string
	Fallback string
	Cover    string
	Exotic   string
	Removed  string
	Message  string
}

type htmlData struct {
	GeneratedAt string
	Total       int
	OK          int
	Restored    int
	Cleaned     int
	NotFound    int
	Errors      int
	Skipped     int
	AvgRating   string
	CSV         string
	Rows        []htmlRow
}

// WriteHTML renders the full per-file report, with the same rows embedded as
// a base64 CSV download link.
func WriteHTML(path string, results []*pipeline.Result, generatedAt time.Time) error {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return err
	}

	data := htmlData{
		GeneratedAt: generatedAt.Format("2006-01-02 15:04:05"),
		Total:       len(results),
		CSV:         base64.StdEncoding.EncodeToString(csvBytes(results)),
	}

	var ratingSum float64
	var ratingCount int
	for _, res := range results {
		written := res.Status == pipeline.StatusOK || res.Status == pipeline.StatusOKDryRun
		switch {
		case written:
			data.OK++
		case res.Status == pipeline.StatusRestore:
			data.Restored++
		case res.Status == pipeline.StatusNotFound:
			data.NotFound++
		case res.Status == pipeline.StatusError:
			data.Errors++
		case res.Status == pipeline.StatusSkip:
			data.Skipped++
		}
		if written && len(res.RemovedExotic) > 0 {
			data.Cleaned++
		}
		if res.Rating != nil {
			ratingSum += *res.Rating
			ratingCount++
		}
	}
	avg := 0.0
	if ratingCount > 0 {
		avg = ratingSum / float64(ratingCount)
	}
	data.AvgRating = fmt.Sprintf("%.2f", avg)

	for _, res := range results {
		data.Rows = append(data.Rows, htmlRow{
			File:     res.File,
			Status:   string(res.Status),
			Artist:   res.Artist,
			Title:    res.Title,
			Duration: fmtDuration(res.DurationMS),
			Rating:   fmtRating(res.Rating),
			Votes:    fmtVotes(res.Votes),
			Fallback: fmtBool(res.Fallback),
			Cover:    fmtBool(res.HasCover),
			Exotic:   joinKeys(res.ExoticTags),
			Removed:  joinKeys(res.RemovedExotic),
			Message:  res.Message,
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func csvBytes(results []*pipeline.Result) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(csvHeader)
	for _, res := range results {
		_ = w.Write([]string{
			res.File,
			string(res.Status),
			res.Artist,
			res.Title,
			fmtDuration(res.DurationMS),
			res.MBID,
			res.ReleaseGroupMBID,
			fmtBool(res.Fallback),
			fmtRating(res.Rating),
			fmtVotes(res.Votes),
			fmtBool(res.HasCover),
			joinKeys(res.ExoticTags),
			joinKeys(res.RemovedExotic),
			res.Message,
		})
	}
	w.Flush()
	return buf.Bytes()
}

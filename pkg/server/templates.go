package server

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>OSM Extract Viewer</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 720px; margin: 3em auto; color: #222; }
h1 { font-weight: 600; }
form { border: 1px solid #ddd; border-radius: 8px; padding: 1.5em; }
label { display: block; margin: 1em 0 0.25em; font-weight: 500; }
input[type=number] { width: 6em; }
button { margin-top: 1.5em; padding: 0.5em 1.5em; border: none; border-radius: 4px; background: #2b6cb0; color: white; cursor: pointer; }
.hint { color: #777; font-size: 0.85em; }
</style>
</head>
<body>
<h1>OSM Extract Viewer</h1>
<p>Upload an OpenStreetMap extract (<code>.osm.pbf</code>) to see element
counts and a map of its tagged nodes.</p>
<form action="/upload" method="post" enctype="multipart/form-data">
  <label for="extract">Extract file</label>
  <input type="file" id="extract" name="extract" accept=".pbf" required>
  <label for="node_limit">Nodes to display</label>
  <input type="number" id="node_limit" name="node_limit" min="100" max="5000" value="1000">
  <p class="hint">Tagged nodes shown on the map, between 100 and 5000.</p>
  <button type="submit">Upload &amp; Summarize</button>
</form>
</body>
</html>
`))

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.FileName}} - OSM Extract Viewer</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 960px; margin: 2em auto; color: #222; }
.metrics { display: flex; gap: 2em; margin: 1em 0; }
.metric { border: 1px solid #ddd; border-radius: 8px; padding: 1em 2em; text-align: center; }
.metric .value { font-size: 1.8em; font-weight: 600; }
.metric .label { color: #777; }
#map { height: 480px; border-radius: 8px; margin: 1em 0; }
table { border-collapse: collapse; }
td, th { padding: 0.25em 1em; border-bottom: 1px solid #eee; text-align: left; }
a { color: #2b6cb0; }
</style>
</head>
<body>
<p><a href="/">&larr; upload another extract</a></p>
<h1>{{.FileName}}</h1>
<p>Decoded in {{.Duration}}.</p>

<div class="metrics">
  <div class="metric"><div class="value">{{.Summary.Nodes}}</div><div class="label">Nodes</div></div>
  <div class="metric"><div class="value">{{.Summary.Ways}}</div><div class="label">Ways</div></div>
  <div class="metric"><div class="value">{{.Summary.Relations}}</div><div class="label">Relations</div></div>
</div>

<h2>Map</h2>
{{if .HasBounds}}
<p>Showing {{len .Summary.SampleNodes}} tagged nodes (limit {{.NodeLimit}}).</p>
{{else}}
<p>The extract contains no nodes; showing the default view.</p>
{{end}}
<div id="map"></div>
<script>
{{if .HasBounds}}
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], 13);
{{else}}
var map = L.map('map').setView([0, 0], 2);
{{end}}
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
var nodes = {{.SampleJSON}};
nodes.forEach(function (n) {
  var tags = Object.keys(n.tags || {}).map(function (k) { return k + '=' + n.tags[k]; }).join('<br>');
  L.circleMarker([n.lat, n.lon], { radius: 3, color: 'red', fill: true })
    .bindPopup('Node ' + n.id + '<br>' + tags)
    .addTo(map);
});
{{if .HasBounds}}
map.fitBounds([[{{.Summary.Bounds.MinLat}}, {{.Summary.Bounds.MinLon}}],
               [{{.Summary.Bounds.MaxLat}}, {{.Summary.Bounds.MaxLon}}]]);
{{end}}
</script>

{{if .Highways}}
<h2>Highway breakdown</h2>
<table>
<tr><th>highway</th><th>ways</th></tr>
{{range .Highways}}<tr><td>{{.Class}}</td><td>{{.Count}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

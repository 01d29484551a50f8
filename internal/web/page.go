package web

import (
	"github.com/soypat/stlview/internal/session"
	"github.com/soypat/stlview/scene"
)

type controlView struct {
	scene.Control
	Value string
}

type colorView struct {
	scene.NamedColor
	Selected bool
}

// meshInfo summarizes the displayed mesh for the sidebar.
type meshInfo struct {
	Name      string     `json:"name"`
	Triangles int        `json:"triangles"`
	Uploaded  bool       `json:"uploaded"`
	Area      float64    `json:"area"`
	Min       [3]float64 `json:"min"`
	Max       [3]float64 `json:"max"`
}

func newMeshInfo(st session.State) meshInfo {
	b := st.Mesh.Bounds()
	return meshInfo{
		Name:      st.Mesh.Name,
		Triangles: len(st.Mesh.Triangles),
		Uploaded:  st.Uploaded,
		Area:      st.Mesh.SurfaceArea(),
		Min:       [3]float64{b.Min.X, b.Min.Y, b.Min.Z},
		Max:       [3]float64{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

type pageData struct {
	Colors   []colorView
	Controls []controlView
	Mesh     meshInfo
	Layout   scene.Layout
}

func newPageData(st session.State, layout scene.Layout) pageData {
	d := pageData{Mesh: newMeshInfo(st), Layout: layout}
	for _, c := range scene.Palette {
		d.Colors = append(d.Colors, colorView{NamedColor: c, Selected: c.Name == st.Config.Color})
	}
	for _, ctl := range scene.Controls() {
		v, _ := st.Config.Value(ctl.Name)
		d.Controls = append(d.Controls, controlView{Control: ctl, Value: v})
	}
	return d
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>STL viewer</title>
<style>
body { margin: 0; font-family: sans-serif; display: flex; }
#sidebar { width: 260px; padding: 12px; background: #f3f3f5; min-height: 100vh; box-sizing: border-box; }
#sidebar label { display: block; margin-top: 10px; font-size: 13px; }
#sidebar input[type=range], #sidebar input[type=number], #sidebar select { width: 100%; }
#error { color: #b00020; font-size: 13px; min-height: 1em; margin-top: 8px; }
#stats { font-size: 12px; color: #555; margin-top: 8px; }
#view { margin: 0; padding: 0; }
</style>
</head>
<body>
<div id="sidebar">
  <label>Mesh file (.stl)
    <input id="file" type="file" accept=".stl">
  </label>
  <button id="reset" type="button">Use sample mesh</button>
  <div id="stats">{{.Mesh.Name}}: {{.Mesh.Triangles}} triangles</div>
  <div id="error"></div>
  <label>Color
    <select name="color" class="control">
      {{range .Colors}}<option value="{{.Name}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>
      {{end}}
    </select>
  </label>
  {{range .Controls}}<label>{{.Label}} <output id="{{.Name}}_out">{{.Value}}</output>
    {{if .Bounded}}<input class="control" name="{{.Name}}" type="range" min="{{.Min}}" max="{{.Max}}" step="{{.Step}}" value="{{.Value}}">
    {{else}}<input class="control" name="{{.Name}}" type="number" step="{{.Step}}" value="{{.Value}}">{{end}}
  </label>
  {{end}}
</div>
<img id="view" width="{{.Layout.Width}}" height="{{.Layout.Height}}" alt="rendered mesh" src="render.png">
<script>
const view = document.getElementById("view");
const errorBox = document.getElementById("error");
const stats = document.getElementById("stats");
const proto = location.protocol === "https:" ? "wss://" : "ws://";
let ws;
function connect() {
  ws = new WebSocket(proto + location.host + "/ws");
  ws.binaryType = "blob";
  ws.onmessage = (ev) => {
    if (typeof ev.data === "string") {
      errorBox.textContent = JSON.parse(ev.data).error;
      return;
    }
    errorBox.textContent = "";
    const old = view.src;
    view.src = URL.createObjectURL(ev.data);
    if (old.startsWith("blob:")) URL.revokeObjectURL(old);
  };
  ws.onclose = (ev) => {
    if (ev.code === 4000) {
      location.reload();
      return;
    }
    setTimeout(connect, 1000);
  };
}
function send(name, value) {
  if (ws.readyState === WebSocket.OPEN) ws.send(JSON.stringify({name: name, value: String(value)}));
}
document.querySelectorAll(".control").forEach((el) => {
  el.addEventListener("input", () => {
    const out = document.getElementById(el.name + "_out");
    if (out) out.textContent = el.value;
    send(el.name, el.value);
  });
});
function showMesh(info) {
  stats.textContent = info.name + ": " + info.triangles + " triangles";
  send("render", "");
}
document.getElementById("file").addEventListener("change", async (ev) => {
  const file = ev.target.files[0];
  if (!file) return;
  const body = new FormData();
  body.append("mesh", file);
  const resp = await fetch("upload", {method: "POST", body: body});
  const data = await resp.json();
  if (!resp.ok) { errorBox.textContent = data.error; return; }
  errorBox.textContent = "";
  showMesh(data);
});
document.getElementById("reset").addEventListener("click", async () => {
  const resp = await fetch("upload", {method: "DELETE"});
  document.getElementById("file").value = "";
  showMesh(await resp.json());
});
connect();
</script>
</body>
</html>
`

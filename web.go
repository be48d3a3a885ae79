package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WebServer exposes the export and conversion paths the CLI uses to a
// browser. Handlers run the work synchronously; a clone can take a
// while, so the server's write timeout is generous.
type WebServer struct {
	ExportsDir string
	UploadsDir string
	Caps       Capabilities
	Log        Logger
}

// RunWebServer binds the UI and API on opts.Host:opts.Port and serves
// until the listener fails.
func RunWebServer(opts WebOptions, caps Capabilities, log Logger) error {
	ws := &WebServer{
		ExportsDir: opts.ExportsDir,
		UploadsDir: opts.UploadsDir,
		Caps:       caps,
		Log:        log,
	}
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	log.Infof("Serving on http://%s", addr)
	return server.ListenAndServe()
}

func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":   true,
			"time": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	mux.HandleFunc("GET /api/capabilities", s.handleCapabilities)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("POST /api/convert", s.handleConvert)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(uiIndexHTML))
	})

	return mux
}

func (s *WebServer) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"capabilities": CapabilityNames(s.Caps),
	})
}

func (s *WebServer) handleExport(w http.ResponseWriter, r *http.Request) {
	type reqBody struct {
		URL          string `json:"url,omitempty"`
		LocalDir     string `json:"local_dir,omitempty"`
		Format       string `json:"format,omitempty"`
		Branch       string `json:"branch,omitempty"`
		Subdir       string `json:"subdir,omitempty"`
		Token        string `json:"token,omitempty"`
		PatternMode  string `json:"pattern_mode,omitempty"`
		PatternInput string `json:"pattern_input,omitempty"`
		MaxSizeKB    int    `json:"max_size_kb,omitempty"`
	}
	var body reqBody
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	opts := ExportOptions{
		RepoURL:      strings.TrimSpace(body.URL),
		LocalDir:     strings.TrimSpace(body.LocalDir),
		Branch:       body.Branch,
		Subdir:       body.Subdir,
		Token:        body.Token,
		Format:       body.Format,
		ExportsDir:   s.ExportsDir,
		PatternMode:  body.PatternMode,
		PatternInput: body.PatternInput,
		MaxSizeKB:    body.MaxSizeKB,
		UseSubdirURL: true,
	}

	var (
		output string
		stats  *ExportStats
		err    error
	)
	switch {
	case opts.RepoURL != "":
		output, stats, err = CloneAndExport(opts, s.Log)
	case opts.LocalDir != "":
		output, stats, err = LocalExport(opts, s.Log)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing url or local_dir"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "output": output, "stats": stats})
}

func (s *WebServer) handleConvert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid multipart form: " + err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing file upload"})
		return
	}
	defer file.Close()

	uploads := s.UploadsDir
	if uploads == "" {
		uploads = "uploads"
	}
	if err := os.MkdirAll(uploads, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	saved := SequentialPath(filepath.Join(uploads, name))
	dst, err := os.Create(saved)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	if err := dst.Close(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	s.Log.Debugf("saved upload to %s", saved)

	output, err := ConvertDocument(ConvertOptions{
		Input:     saved,
		Format:    r.FormValue("format"),
		OutputDir: s.ExportsDir,
		Pages:     r.FormValue("pages"),
	}, s.Caps, s.Log)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrCapabilityUnavailable) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "output": output})
}

func readJSON(r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()

	const maxBytes = 1_000_000
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return fmt.Errorf("failed reading request body: %v", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		b = []byte("{}")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("invalid json: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	b, err := json.Marshal(v)
	if err != nil {
		_, _ = w.Write([]byte(`{"ok":false,"error":"failed to marshal json"}`))
		return
	}
	_, _ = w.Write(append(b, '\n'))
}

const uiIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width,initial-scale=1" />
  <title>Tessera</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 720px; color: #1f2328; }
    h1 { font-size: 1.4rem; }
    fieldset { border: 1px solid #d0d7de; border-radius: 6px; margin-bottom: 1.5rem; padding: 1rem; }
    legend { font-weight: 600; padding: 0 .4rem; }
    label { display: block; margin-top: .6rem; font-size: .9rem; }
    input[type=text], select { width: 100%; padding: .4rem; margin-top: .2rem; box-sizing: border-box; }
    button { margin-top: .8rem; padding: .45rem 1.2rem; cursor: pointer; }
    pre { background: #f6f8fa; border-radius: 6px; padding: .8rem; white-space: pre-wrap; word-break: break-all; }
  </style>
</head>
<body>
  <h1>Tessera</h1>

  <fieldset>
    <legend>Export a repository or directory</legend>
    <label>Repository URL <input type="text" id="expUrl" placeholder="https://github.com/owner/repo" /></label>
    <label>or local directory <input type="text" id="expDir" placeholder="/path/to/project" /></label>
    <label>Branch or commit <input type="text" id="expBranch" /></label>
    <label>Subdirectory <input type="text" id="expSubdir" /></label>
    <label>Format
      <select id="expFormat"><option value="text">text</option><option value="json">json</option></select>
    </label>
    <label>Pattern mode
      <select id="expMode"><option value="exclude">exclude</option><option value="include">include</option></select>
    </label>
    <label>Patterns (semicolon separated) <input type="text" id="expPatterns" placeholder="*.log;build/*" /></label>
    <button id="btnExport">Export</button>
  </fieldset>

  <fieldset>
    <legend>Convert a document</legend>
    <label>File <input type="file" id="convFile" /></label>
    <label>Format
      <select id="convFormat">
        <option value="text">text</option>
        <option value="markdown">markdown</option>
        <option value="csv">csv</option>
        <option value="pdf">pdf</option>
      </select>
    </label>
    <button id="btnConvert">Convert</button>
  </fieldset>

  <pre id="out">Ready.</pre>

  <script>
    const out = document.getElementById('out');
    const show = (v) => { out.textContent = typeof v === 'string' ? v : JSON.stringify(v, null, 2); };

    document.getElementById('btnExport').addEventListener('click', async () => {
      show('Exporting…');
      try {
        const res = await fetch('/api/export', {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify({
            url: document.getElementById('expUrl').value,
            local_dir: document.getElementById('expDir').value,
            branch: document.getElementById('expBranch').value,
            subdir: document.getElementById('expSubdir').value,
            format: document.getElementById('expFormat').value,
            pattern_mode: document.getElementById('expMode').value,
            pattern_input: document.getElementById('expPatterns').value
          })
        });
        show(await res.json());
      } catch (err) { show(String(err)); }
    });

    document.getElementById('btnConvert').addEventListener('click', async () => {
      const input = document.getElementById('convFile');
      if (!input.files.length) { show('Choose a file first.'); return; }
      show('Converting…');
      try {
        const form = new FormData();
        form.append('file', input.files[0]);
        form.append('format', document.getElementById('convFormat').value);
        const res = await fetch('/api/convert', { method: 'POST', body: form });
        show(await res.json());
      } catch (err) { show(String(err)); }
    });
  </script>
</body>
</html>
`

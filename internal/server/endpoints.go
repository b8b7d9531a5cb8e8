package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rpgvault/ingest/internal/api"
	"github.com/rpgvault/ingest/internal/enhancer"
	"github.com/rpgvault/ingest/internal/identifier"
	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
	"github.com/rpgvault/ingest/internal/pipeline"
)

// genericEndpoint adapts a plain http.HandlerFunc plus a cobra command
// builder into an api.Endpoint, avoiding one bespoke type per verb.
type genericEndpoint struct {
	method, path string
	handler      http.HandlerFunc
	command      func(getServerURL func() string) *cobra.Command
}

func (e genericEndpoint) Route() (string, string, http.HandlerFunc) { return e.method, e.path, e.handler }
func (e genericEndpoint) Command(getServerURL func() string) *cobra.Command {
	return e.command(getServerURL)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := ingesterr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case ingesterr.KindBadSession, ingesterr.KindUploadTooLarge:
		status = http.StatusBadRequest
	case ingesterr.KindRejectedDuplicate:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": string(kind)})
}

// SessionEndpoints builds one api.Endpoint per session API verb, each
// backed by orch. orch may be nil when the caller only needs
// the Command() builders (the CLI's `api` subcommand tree never touches
// orch directly, since every command calls the server over HTTP).
func SessionEndpoints(orch *pipeline.Orchestrator) []api.Endpoint {
	return []api.Endpoint{
		uploadEndpoint(orch),
		analyzeEndpoint(orch),
		extractEndpoint(orch),
		cancelEndpoint(orch),
		progressEndpoint(orch),
		statusEndpoint(orch),
		artifactEndpoint(orch),
		healthEndpoint(orch),
		listCollectionsEndpoint(orch),
		browseCollectionEndpoint(orch),
	}
}

func uploadEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "POST", path: "/sessions",
		handler: func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("X-Origin-Name")
			if origin == "" {
				origin = "upload.pdf"
			}
			bytes, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, ingesterr.New(ingesterr.KindBadSession, "upload", "", err))
				return
			}
			id, err := orch.Upload(bytes, origin)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
		},
		command: func(getServerURL func() string) *cobra.Command {
			return &cobra.Command{Use: "upload <pdf>", Short: "Upload a PDF and create a session",
				Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
					return httpUploadFile(cmd, getServerURL()+"/sessions", args[0])
				}}
		},
	}
}

type analyzeRequest struct {
	Provider  string `json:"provider"`
	Kind      string `json:"kind"`
	Game      string `json:"game,omitempty"`
	Edition   string `json:"edition,omitempty"`
	Book      string `json:"book,omitempty"`
	BookTitle string `json:"book_title,omitempty"`
	Publisher string `json:"publisher,omitempty"`
}

func analyzeEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "POST", path: "/sessions/{id}/analyze",
		handler: func(w http.ResponseWriter, r *http.Request) {
			var req analyzeRequest
			json.NewDecoder(r.Body).Decode(&req)

			var override *identifier.ManualOverride
			if req.Game != "" || req.Edition != "" || req.Book != "" {
				override = &identifier.ManualOverride{
					Game: req.Game, Edition: req.Edition, Book: req.Book,
					BookTitle: req.BookTitle, Publisher: req.Publisher,
				}
			}
			v, err := orch.Analyze(r.Context(), r.PathValue("id"), pipeline.AnalyzeOptions{
				Provider: req.Provider, Kind: model.ContentKind(req.Kind), Overrides: override,
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, v)
		},
		command: func(getServerURL func() string) *cobra.Command {
			var provider, kind string
			cmd := &cobra.Command{Use: "analyze <session-id>", Short: "Drive a session to identified",
				Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
					req := analyzeRequest{Provider: provider, Kind: kind}
					return httpPostJSON(cmd, fmt.Sprintf("%s/sessions/%s/analyze", getServerURL(), args[0]), req)
				}}
			cmd.Flags().StringVar(&provider, "provider", "mock", "AI provider variant")
			cmd.Flags().StringVar(&kind, "kind", string(model.KindSourceMaterial), "content kind")
			return cmd
		},
	}
}

type extractRequest struct {
	TextEnhance string `json:"text_enhance"`
	Layout      string `json:"layout"`
}

func extractEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "POST", path: "/sessions/{id}/extract",
		handler: func(w http.ResponseWriter, r *http.Request) {
			var req extractRequest
			json.NewDecoder(r.Body).Decode(&req)
			layout := model.LayoutSeparate
			if req.Layout == "single_with_folder" || req.Layout == "single" {
				layout = model.LayoutSingleWithFolder
			}
			artifact, err := orch.Extract(r.Context(), r.PathValue("id"), pipeline.ExtractOptions{
				TextEnhance: enhancer.Mode(req.TextEnhance), Layout: layout,
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, artifact)
		},
		command: func(getServerURL func() string) *cobra.Command {
			var textEnhance, layout string
			cmd := &cobra.Command{Use: "extract <session-id>", Short: "Drive a session to completed",
				Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
					req := extractRequest{TextEnhance: textEnhance, Layout: layout}
					return httpPostJSON(cmd, fmt.Sprintf("%s/sessions/%s/extract", getServerURL(), args[0]), req)
				}}
			cmd.Flags().StringVar(&textEnhance, "enhance", "normal", "off|normal|aggressive")
			cmd.Flags().StringVar(&layout, "layout", "separate", "separate|single_with_folder")
			return cmd
		},
	}
}

func cancelEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "POST", path: "/sessions/{id}/cancel",
		handler: func(w http.ResponseWriter, r *http.Request) {
			if err := orch.Cancel(r.PathValue("id")); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "cancel requested"})
		},
		command: func(getServerURL func() string) *cobra.Command {
			return &cobra.Command{Use: "cancel <session-id>", Short: "Request cancellation of a session",
				Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
					return httpPostJSON(cmd, fmt.Sprintf("%s/sessions/%s/cancel", getServerURL(), args[0]), nil)
				}}
		},
	}
}

// progressEndpoint streams progress as server-sent events: a lazy,
// finite sequence ending at any terminal state.
func progressEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "GET", path: "/sessions/{id}/progress",
		handler: func(w http.ResponseWriter, r *http.Request) {
			events, unsubscribe, err := orch.ProgressStream(r.PathValue("id"))
			if err != nil {
				writeError(w, err)
				return
			}
			defer unsubscribe()

			flusher, ok := w.(http.Flusher)
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)

			for {
				select {
				case <-r.Context().Done():
					return
				case ev, open := <-events:
					if !open {
						return
					}
					data, _ := json.Marshal(ev)
					fmt.Fprintf(w, "data: %s\n\n", data)
					if ok {
						flusher.Flush()
					}
				}
			}
		},
		command: func(getServerURL func() string) *cobra.Command {
			return &cobra.Command{Use: "progress <session-id>", Short: "Stream a session's progress events",
				Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
					return httpStreamSSE(cmd, fmt.Sprintf("%s/sessions/%s/progress", getServerURL(), args[0]))
				}}
		},
	}
}

func statusEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "GET", path: "/sessions/{id}/status",
		handler: func(w http.ResponseWriter, r *http.Request) {
			snap, err := orch.Status(r.PathValue("id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, snap)
		},
		command: func(getServerURL func() string) *cobra.Command {
			return &cobra.Command{Use: "status <session-id>", Short: "Show a session snapshot",
				Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
					return httpGetJSON(cmd, fmt.Sprintf("%s/sessions/%s/status", getServerURL(), args[0]))
				}}
		},
	}
}

func artifactEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "GET", path: "/sessions/{id}/artifact",
		handler: func(w http.ResponseWriter, r *http.Request) {
			a, err := orch.Artifact(r.PathValue("id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, a)
		},
		command: func(getServerURL func() string) *cobra.Command {
			return &cobra.Command{Use: "artifact <session-id>", Short: "Fetch a completed extraction artifact",
				Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
					return httpGetJSON(cmd, fmt.Sprintf("%s/sessions/%s/artifact", getServerURL(), args[0]))
				}}
		},
	}
}

func healthEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "GET", path: "/health",
		handler: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, orch.Health(r.Context()))
		},
		command: func(getServerURL func() string) *cobra.Command {
			return &cobra.Command{Use: "health", Short: "Check server health",
				RunE: func(cmd *cobra.Command, args []string) error {
					return httpGetJSON(cmd, getServerURL()+"/health")
				}}
		},
	}
}

func listCollectionsEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "GET", path: "/collections/{store}",
		handler: func(w http.ResponseWriter, r *http.Request) {
			names, err := orch.ListCollections(r.Context(), r.PathValue("store"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, names)
		},
		command: func(getServerURL func() string) *cobra.Command {
			return &cobra.Command{Use: "list-collections <vector|document>", Short: "List collections in a store",
				Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
					return httpGetJSON(cmd, fmt.Sprintf("%s/collections/%s", getServerURL(), args[0]))
				}}
		},
	}
}

func browseCollectionEndpoint(orch *pipeline.Orchestrator) genericEndpoint {
	return genericEndpoint{
		method: "GET", path: "/collections/{store}/{name}",
		handler: func(w http.ResponseWriter, r *http.Request) {
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			if limit <= 0 {
				limit = 20
			}
			docs, err := orch.BrowseCollection(r.Context(), r.PathValue("store"), r.PathValue("name"), offset, limit)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, docs)
		},
		command: func(getServerURL func() string) *cobra.Command {
			var offset, limit int
			cmd := &cobra.Command{Use: "browse-collection <vector|document> <name>", Short: "Page through a collection",
				Args: cobra.ExactArgs(2), RunE: func(cmd *cobra.Command, args []string) error {
					url := fmt.Sprintf("%s/collections/%s/%s?offset=%d&limit=%d", getServerURL(), args[0], args[1], offset, limit)
					return httpGetJSON(cmd, url)
				}}
			cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
			cmd.Flags().IntVar(&limit, "limit", 20, "page size")
			return cmd
		},
	}
}

// httpStreamSSE reads a server-sent-event stream line by line and prints
// each `data:` payload, used by the `api progress` command.
func httpStreamSSE(cmd *cobra.Command, url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > 6 && line[:6] == "data: " {
			fmt.Fprintln(cmd.OutOrStdout(), line[6:])
		}
	}
	return scanner.Err()
}

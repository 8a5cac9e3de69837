package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"censorship/pkg/censor"
	"censorship/pkg/dictionary"
	"censorship/pkg/events"
	"censorship/pkg/metrics"
	"censorship/pkg/models"
)

// maxBodySize limits request bodies.
const maxBodySize = 1 << 20

// Cache keeps censor results between requests.
type Cache interface {
	// Get returns the cached result and the key a fresh result is stored under.
	Get(ctx context.Context, text string, fullWords bool) (censor.Result, string, bool, error)
	Set(ctx context.Context, key string, res censor.Result) error
	Invalidate(ctx context.Context) error
}

// Options holds the optional collaborators of the API. Nil fields are
// disabled.
type Options struct {
	// Store persists dictionary edits made through the API.
	Store dictionary.Store
	Cache Cache
	// Publisher ships request logs and moderation events to Kafka.
	Publisher *events.Publisher
	// FullWords is the matching mode used when a request does not pick one.
	FullWords bool
}

type API struct {
	ServiceName string

	r      *mux.Router
	censor *censor.Censor
	opts   Options
}

func New(name string, c *censor.Censor, opts Options) (*API, error) {
	if c == nil {
		return nil, errors.New("censor is required")
	}

	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		censor:      c,
		opts:        opts,
	}
	api.endpoints()

	return &api, nil
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.headerMiddleware)
	api.r.Use(api.metricsMiddleware)

	api.r.HandleFunc("/censor", api.censorText).Methods(http.MethodPost)
	api.r.HandleFunc("/check", api.checkComment).Methods(http.MethodPost)

	api.r.HandleFunc("/terms", api.terms).Methods(http.MethodGet)
	api.r.HandleFunc("/terms", api.setTerms).Methods(http.MethodPut)
	api.r.HandleFunc("/terms", api.addTerms).Methods(http.MethodPost)
	api.r.HandleFunc("/whitelist", api.whitelist).Methods(http.MethodGet)
	api.r.HandleFunc("/whitelist", api.setWhitelist).Methods(http.MethodPut)
	api.r.HandleFunc("/fill", api.setFill).Methods(http.MethodPut)

	api.r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if api.opts.Publisher != nil {
		api.r.Use(api.loggingMiddleware(api.opts.Publisher))
	}
}

func (api *API) censorText(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req censorRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Errorf("[censorHandler][%s] failed to decode request body: %v", sID, err)
		return
	}
	if req.Text == "" {
		http.Error(w, "Empty text", http.StatusBadRequest)
		return
	}

	fullWords := api.opts.FullWords
	if req.FullWords != nil {
		fullWords = *req.FullWords
	}

	res, err := api.censorCached(r.Context(), req.Text, fullWords)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[censorHandler][%s] failed to censor text: %v", sID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
	log.Debugf("[censorHandler][%s] %d fragments masked", sID, len(res.Matched))
}

func (api *API) checkComment(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var comment models.Comment
	if err := decodeBody(w, r, &comment); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Errorf("[checkHandler][%s] failed to decode request body: %v", sID, err)
		return
	}

	res, err := api.censorCached(r.Context(), comment.Text, api.opts.FullWords)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[checkHandler][%s] failed to censor comment: %v", sID, err)
		return
	}

	if len(res.Matched) == 0 {
		writeJSON(w, http.StatusOK, checkResponse{Allowed: true})
		return
	}

	if api.opts.Publisher != nil {
		if _, err := api.opts.Publisher.PublishModeration(r.Context(), reqID, comment, res); err != nil {
			log.Errorf("[checkHandler][%s] failed to publish moderation event: %v", sID, err)
		}
	}

	writeJSON(w, http.StatusUnprocessableEntity, checkResponse{
		Allowed: false,
		Clean:   res.Clean,
		Matched: res.Matched,
	})
	log.Infof("[checkHandler][%s] comment by %q rejected", sID, comment.Author)
}

// censorCached serves the result from the cache when one is configured.
// Cache failures are logged and never fail the request.
func (api *API) censorCached(ctx context.Context, text string, fullWords bool) (censor.Result, error) {
	var key string
	if api.opts.Cache != nil {
		res, k, ok, err := api.opts.Cache.Get(ctx, text, fullWords)
		key = k
		if err != nil {
			log.Warnf("[cache] lookup failed: %v", err)
		}
		if ok {
			metrics.CacheHitsTotal.Inc()
			return res, nil
		}
	}

	start := time.Now()
	res, err := api.censor.Censor(text, fullWords)
	metrics.ScanSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return censor.Result{}, err
	}
	metrics.MatchesTotal.Add(float64(len(res.Matched)))

	if api.opts.Cache != nil && key != "" {
		if err := api.opts.Cache.Set(ctx, key, res); err != nil {
			log.Warnf("[cache] store failed: %v", err)
		}
	}

	return res, nil
}

func (api *API) terms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.censor.Terms())
}

func (api *API) setTerms(w http.ResponseWriter, r *http.Request) {
	api.updateTerms(w, r, "setTermsHandler", func(ctx context.Context, terms []censor.Term) error {
		if api.opts.Store != nil {
			if err := api.opts.Store.SetTerms(ctx, terms); err != nil {
				return err
			}
		}
		return api.censor.SetTerms(terms...)
	})
}

func (api *API) addTerms(w http.ResponseWriter, r *http.Request) {
	api.updateTerms(w, r, "addTermsHandler", func(ctx context.Context, terms []censor.Term) error {
		if api.opts.Store != nil {
			if err := api.opts.Store.AddTerms(ctx, terms); err != nil {
				return err
			}
		}
		return api.censor.AddTerms(terms...)
	})
}

// updateTerms validates the submitted terms before anything is stored, so a
// broken pattern leaves both the store and the censor untouched, and the store
// only ever receives the terms the censor keeps.
func (api *API) updateTerms(w http.ResponseWriter, r *http.Request, handler string, apply func(context.Context, []censor.Term) error) {
	sID := shorten(GetRequestID(r.Context()))

	var terms []censor.Term
	if err := decodeBody(w, r, &terms); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Errorf("[%s][%s] failed to decode request body: %v", handler, sID, err)
		return
	}

	valid, err := censor.Validate(terms...)
	if err != nil {
		api.termsError(w, handler, sID, err)
		return
	}

	if err := apply(r.Context(), valid); err != nil {
		api.termsError(w, handler, sID, err)
		return
	}
	api.invalidate(r.Context())

	writeJSON(w, http.StatusOK, api.censor.Terms())
	log.Infof("[%s][%s] %d terms registered", handler, sID, len(api.censor.Terms()))
}

func (api *API) termsError(w http.ResponseWriter, handler, sID string, err error) {
	var pce *censor.PatternCompileError
	if errors.As(err, &pce) {
		metrics.CompileErrorsTotal.Inc()
		writeJSON(w, http.StatusUnprocessableEntity, termErrorResponse{
			Error: pce.Err.Error(),
			Index: pce.Index,
			Term:  pce.Term,
		})
		log.Warnf("[%s][%s] rejected term: %v", handler, sID, err)
		return
	}

	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	log.Errorf("[%s][%s] failed to update terms: %v", handler, sID, err)
}

func (api *API) whitelist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.censor.Whitelist())
}

func (api *API) setWhitelist(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var phrases []string
	if err := decodeBody(w, r, &phrases); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Errorf("[setWhitelistHandler][%s] failed to decode request body: %v", sID, err)
		return
	}

	if api.opts.Store != nil {
		if err := api.opts.Store.SetWhitelist(r.Context(), phrases); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Errorf("[setWhitelistHandler][%s] failed to store whitelist: %v", sID, err)
			return
		}
	}
	api.censor.SetWhitelist(phrases...)
	api.invalidate(r.Context())

	writeJSON(w, http.StatusOK, api.censor.Whitelist())
}

func (api *API) setFill(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req fillRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Errorf("[setFillHandler][%s] failed to decode request body: %v", sID, err)
		return
	}

	if err := api.censor.SetFillValue(req.Fill); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	api.invalidate(r.Context())

	writeJSON(w, http.StatusOK, fillRequest{Fill: api.censor.FillValue()})
}

func (api *API) invalidate(ctx context.Context) {
	if api.opts.Cache == nil {
		return
	}
	if err := api.opts.Cache.Invalidate(ctx); err != nil {
		log.Errorf("[cache] failed to invalidate cached results: %v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("[api] failed to encode response: %v", err)
	}
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}

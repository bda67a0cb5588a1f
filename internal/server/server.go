// Package server exposes the live process tree over HTTP and WebSocket for
// remote presentation adapters. It is a read-only consumer of the tree
// store: handlers re-pull structure through the root/children accessors and
// the event socket forwards coarse change notifications with no diff
// payload.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/blackwell-systems/procscope/internal/classify"
	"github.com/blackwell-systems/procscope/internal/tree"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the server binds to loopback by default
	},
}

// Options configures a Server.
type Options struct {
	Addr    string
	Logger  *zap.Logger
	Metrics *Metrics
}

// Server serves the tree view API for one monitored root.
type Server struct {
	store      *tree.Store
	classifier *classify.Cache
	log        *zap.Logger
	metrics    *Metrics
	httpSrv    *http.Server
}

// New creates a Server reading from store.
func New(store *tree.Store, opts Options) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	cache, err := classify.NewCache(512)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:      store,
		classifier: cache,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
	s.httpSrv = &http.Server{Addr: opts.Addr, Handler: s.router()}
	return s, nil
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.GET("/tree", s.handleTree)
	api.GET("/nodes/:pid", s.handleNode)
	api.GET("/nodes/:pid/children", s.handleChildren)
	api.GET("/events", s.handleEvents)

	return r
}

// nodeView is the JSON shape of one tree node.
type nodeView struct {
	Pid            int32      `json:"pid"`
	PPid           int32      `json:"ppid"`
	Name           string     `json:"name"`
	Command        string     `json:"command"`
	CPULoad        float64    `json:"cpuLoad"`
	Memory         float64    `json:"memory"`
	IsElectronHost bool       `json:"isElectronHost,omitempty"`
	MarkedRemoved  bool       `json:"markedRemoved,omitempty"`
	Debug          *debugView `json:"debug,omitempty"`
	Children       []nodeView `json:"children,omitempty"`
}

type debugView struct {
	Kind string `json:"kind"`
	Port int    `json:"port,omitempty"`
}

func (s *Server) view(n *tree.Node, deep bool) nodeView {
	rec := n.Record()
	v := nodeView{
		Pid:            rec.Pid,
		PPid:           rec.PPid,
		Name:           rec.Name,
		Command:        rec.Command,
		CPULoad:        rec.CPULoad,
		Memory:         rec.Memory,
		IsElectronHost: rec.IsElectronHost,
		MarkedRemoved:  n.MarkedRemoved(),
	}
	if target := s.classifier.Classify(rec.Command, rec.IsElectronHost); target.Debuggable() {
		v.Debug = &debugView{Kind: target.Kind.String(), Port: target.Port}
	}
	if deep {
		for _, c := range n.Children() {
			v.Children = append(v.Children, s.view(c, true))
		}
	}
	return v
}

func (s *Server) handleTree(c *gin.Context) {
	c.JSON(http.StatusOK, s.view(s.store.Root(), true))
}

func (s *Server) lookupNode(c *gin.Context) (*tree.Node, bool) {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pid"})
		return nil, false
	}
	n := s.store.Find(int32(pid))
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no node for pid %d", pid)})
		return nil, false
	}
	return n, true
}

func (s *Server) handleNode(c *gin.Context) {
	if n, ok := s.lookupNode(c); ok {
		c.JSON(http.StatusOK, s.view(n, true))
	}
}

func (s *Server) handleChildren(c *gin.Context) {
	n, ok := s.lookupNode(c)
	if !ok {
		return
	}
	children := []nodeView{}
	for _, child := range n.Children() {
		children = append(children, s.view(child, false))
	}
	c.JSON(http.StatusOK, children)
}

// handleEvents upgrades to WebSocket and pushes one coarse invalidation
// message per merge. Consumers re-pull whatever subtree they display.
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	changes, cancel := s.store.Subscribe()
	defer cancel()

	// Drain the client side so closes are noticed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return // store torn down
			}
			if err := conn.WriteJSON(gin.H{"type": "tree_changed"}); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}

// Start begins serving in the background.
func (s *Server) Start() error {
	ln := s.httpSrv.Addr
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()
	s.log.Info("serving tree view", zap.String("addr", ln))
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

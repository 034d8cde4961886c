package inspector

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avaroute/internal/health"
	"github.com/vyrodovalexey/avaroute/internal/observability"
	"github.com/vyrodovalexey/avaroute/internal/router"
	"github.com/vyrodovalexey/avaroute/internal/tree"
	"github.com/vyrodovalexey/avaroute/internal/util"
)

const (
	formatYAML      = "yaml"
	contentTypeYAML = "application/yaml"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Allowed []string `json:"allowed,omitempty"`
}

type routeResponse struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
	Handler string   `json:"handler,omitempty"`
}

type statsResponse struct {
	Routes      int `json:"routes"`
	NodesBefore int `json:"nodesBefore"`
	NodesAfter  int `json:"nodesAfter"`
	Collapses   int `json:"collapses"`
	Merges      int `json:"merges"`
	Flattens    int `json:"flattens"`
}

type treeResponse struct {
	Stats statsResponse  `json:"stats"`
	Tree  *tree.Document `json:"tree"`
}

type matchResponse struct {
	Route   string            `json:"route"`
	Handler string            `json:"handler,omitempty"`
	Params  map[string]string `json:"params"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.health.Health())
}

func (s *Server) handleReadiness(c *gin.Context) {
	resp := s.health.Readiness(c.Request.Context())
	status := http.StatusOK
	if resp.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *Server) handleRoutes(c *gin.Context) {
	routes := s.source.GetRoutes()
	out := make([]routeResponse, 0, len(routes))
	for _, r := range routes {
		methods := []string{"*"}
		if r.MethodMatcher != nil {
			methods = r.MethodMatcher.Methods()
		}
		out = append(out, routeResponse{
			Name:    r.Name,
			Path:    r.Config.Path,
			Methods: methods,
			Handler: r.Config.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}

func (s *Server) handleTree(c *gin.Context) {
	t := s.source.Tree()

	if strings.EqualFold(c.Query("format"), formatYAML) {
		data, err := tree.MarshalYAML(t)
		if err != nil {
			s.internalError(c, "failed to encode tree", err)
			return
		}
		c.Data(http.StatusOK, contentTypeYAML, data)
		return
	}

	doc, err := tree.Encode(t)
	if err != nil {
		s.internalError(c, "failed to encode tree", err)
		return
	}

	stats := s.source.Stats()
	c.JSON(http.StatusOK, treeResponse{
		Stats: statsResponse{
			Routes:      len(s.source.GetRoutes()),
			NodesBefore: stats.NodesBefore,
			NodesAfter:  t.NodeCount(),
			Collapses:   stats.Collapses,
			Merges:      stats.Merges,
			Flattens:    stats.Flattens,
		},
		Tree: doc,
	})
}

func (s *Server) handleMatch(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "Bad Request",
			Message: "query parameter path is required",
		})
		return
	}
	method := strings.ToUpper(c.DefaultQuery("method", http.MethodGet))
	if err := util.ValidateHTTPMethod(method); err != nil {
		s.matchError(c, err)
		return
	}

	result, err := s.source.MatchPath(method, path)
	if err != nil {
		s.matchError(c, err)
		return
	}

	params := result.PathParams
	if params == nil {
		params = map[string]string{}
	}
	c.JSON(http.StatusOK, matchResponse{
		Route:   result.Route.Name,
		Handler: result.Route.Config.Handler,
		Params:  params,
	})
}

// matchError maps a failed match to a response. Client errors other than
// the two routing outcomes are reported as bad requests.
func (s *Server) matchError(c *gin.Context, err error) {
	var notAllowed *util.MethodNotAllowedError
	switch {
	case errors.As(err, &notAllowed):
		c.Header("Allow", strings.Join(notAllowed.Allowed, ", "))
		c.JSON(http.StatusMethodNotAllowed, errorResponse{
			Error:   "Method Not Allowed",
			Message: err.Error(),
			Allowed: notAllowed.Allowed,
		})
	case errors.Is(err, util.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{
			Error:   "Not Found",
			Message: err.Error(),
		})
	case util.IsClientError(err):
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
		})
	default:
		s.internalError(c, "match failed", err)
	}
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.WithContext(c.Request.Context()).Error(msg, observability.Error(err))
	if span := getSpan(c); span != nil {
		observability.RecordError(span, err)
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, errorResponse{
		Error:   "Internal Server Error",
		Message: msg,
	})
}

var _ Source = (*router.Router)(nil)

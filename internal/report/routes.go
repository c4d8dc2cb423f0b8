package report

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/praktika/internal/artifacts"
	"github.com/zulandar/praktika/internal/checks"
)

// registerRoutes sets up all report routes on the Gin router.
func registerRoutes(router *gin.Engine, store *checks.Store, objects *artifacts.Store) {
	// Pages.
	router.GET("/", handleIndex(store))
	router.GET("/runs/:id", handleRun(store))

	// API.
	router.GET("/api/checks", handleChecks(store))
	router.GET("/api/runs/:id/logs/:job", handleLogs(store))

	// Published reports and artifacts.
	router.GET("/artifacts/*path", handleArtifact(objects))
}

func handleIndex(store *checks.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := store.ListRuns(50)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.HTML(http.StatusOK, "index.html", gin.H{"Runs": runs})
	}
}

func handleRun(store *checks.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := store.GetRun(c.Param("id"))
		if errors.Is(err, checks.ErrRunNotFound) {
			c.String(http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		rows, err := store.ListChecks(checks.Filter{RunID: run.ID})
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.HTML(http.StatusOK, "report.html", FromChecks(*run, rows))
	}
}

// handleChecks returns check rows as JSON. Query parameters: run, workflow,
// sha, name, status, pr, limit.
func handleChecks(store *checks.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := checks.Filter{
			RunID:     c.Query("run"),
			Workflow:  c.Query("workflow"),
			CommitSHA: c.Query("sha"),
			CheckName: c.Query("name"),
			Status:    c.Query("status"),
			Limit:     100,
		}
		if v := c.Query("pr"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.String(http.StatusBadRequest, "invalid pr %q", v)
				return
			}
			f.PRNumber = n
		}
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 1000 {
				c.String(http.StatusBadRequest, "invalid limit %q", v)
				return
			}
			f.Limit = n
		}
		rows, err := store.ListChecks(f)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func handleLogs(store *checks.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := store.Logs(c.Param("id"), c.Param("job"))
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		if len(logs) == 0 {
			c.String(http.StatusNotFound, "no output for %s in run %s", c.Param("job"), c.Param("id"))
			return
		}
		var b strings.Builder
		for _, l := range logs {
			b.WriteString(l.Content)
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(b.String()))
	}
}

func handleArtifact(objects *artifacts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("path"), "/")
		data, err := objects.Get(key)
		if errors.Is(err, artifacts.ErrNotFound) {
			c.String(http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		ctype := mime.TypeByExtension(path.Ext(key))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		c.Data(http.StatusOK, ctype, data)
	}
}

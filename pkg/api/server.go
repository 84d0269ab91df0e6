// Package api provides the REST transport-control server for fmidi.
package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/asdlei99/fmidi/pkg/midiout"
	"github.com/asdlei99/fmidi/pkg/player"
	"github.com/asdlei99/fmidi/pkg/seq"
)

// @title fmidi API
// @version 1.0
// @description Transport control for the fmidi playback engine
// @host localhost:8080
// @BasePath /api/v1

// Server owns one player and serializes every access to it, including
// scheduler ticks, behind a single mutex. The player itself has no
// internal locking.
type Server struct {
	mu sync.Mutex

	file     string
	sequence *seq.List
	player   *player.Player
	port     *midiout.Port
}

// lockedScheduler wraps a scheduler so armed ticks run under the
// server mutex, serialized with the HTTP handlers.
type lockedScheduler struct {
	inner player.Scheduler
	mu    *sync.Mutex
}

func (s *lockedScheduler) Arm(period time.Duration, tick func()) {
	s.inner.Arm(period, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		tick()
	})
}

func (s *lockedScheduler) Disarm()        { s.inner.Disarm() }
func (s *lockedScheduler) Now() time.Time { return s.inner.Now() }

// StartServer starts the API server on the specified port.
func StartServer(port int) error {
	srv := &Server{}
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/status", srv.handleStatus)
		v1.GET("/ports", listPorts)
		v1.POST("/load", srv.handleLoad)
		v1.POST("/transport/start", srv.handleStart)
		v1.POST("/transport/stop", srv.handleStop)
		v1.POST("/transport/rewind", srv.handleRewind)
		v1.POST("/transport/seek", srv.handleSeek)
		v1.PUT("/transport/speed", srv.handleSpeed)
		v1.PUT("/transport/clock", srv.handleClock)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "fmidi",
	})
}

// listPorts godoc
// @Summary List MIDI output ports
// @Description Returns the names of all available MIDI output ports
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/ports [get]
func listPorts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ports": midiout.Ports()})
}

type loadRequest struct {
	Path string `json:"path" binding:"required"`
	Port string `json:"port"`
}

// handleLoad godoc
// @Summary Load a MIDI file
// @Description Loads a standard MIDI file and prepares it for playback on the given output port
// @Tags transport
// @Accept json
// @Produce json
// @Param request body loadRequest true "File path and optional output port"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/load [post]
func (s *Server) handleLoad(c *gin.Context) {
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sequence, err := seq.FromFile(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	port, err := midiout.Open(req.Port)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != nil {
		s.player.Close()
	}

	p := player.New(sequence, &lockedScheduler{inner: player.NewTickerScheduler(), mu: &s.mu})
	p.SetEventHandler(func(ev *seq.Event) {
		_ = port.Send(ev)
	})

	s.file = req.Path
	s.sequence = sequence
	s.player = p
	s.port = port

	c.JSON(http.StatusOK, gin.H{
		"file":     req.Path,
		"port":     port.Name(),
		"events":   sequence.Len(),
		"duration": sequence.Duration(),
	})
}

// handleStatus godoc
// @Summary Transport status
// @Description Returns the loaded file and the current transport state
// @Tags transport
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/status [get]
func (s *Server) handleStatus(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		c.JSON(http.StatusOK, gin.H{"loaded": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"loaded":          true,
		"file":            s.file,
		"port":            s.port.Name(),
		"running":         s.player.Running(),
		"time":            s.player.CurrentTime(),
		"duration":        s.sequence.Duration(),
		"speed":           s.player.Speed(),
		"clock_frequency": s.player.ClockFrequency(),
	})
}

// withPlayer runs fn under the server mutex, rejecting the request when
// nothing is loaded.
func (s *Server) withPlayer(c *gin.Context, fn func(p *player.Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no file loaded"})
		return
	}
	fn(s.player)
}

// handleStart godoc
// @Summary Start playback
// @Tags transport
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /api/v1/transport/start [post]
func (s *Server) handleStart(c *gin.Context) {
	s.withPlayer(c, func(p *player.Player) {
		p.Start()
		c.JSON(http.StatusOK, gin.H{"running": p.Running()})
	})
}

// handleStop godoc
// @Summary Stop playback
// @Tags transport
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /api/v1/transport/stop [post]
func (s *Server) handleStop(c *gin.Context) {
	s.withPlayer(c, func(p *player.Player) {
		p.Stop()
		c.JSON(http.StatusOK, gin.H{"running": p.Running()})
	})
}

// handleRewind godoc
// @Summary Rewind to time zero
// @Tags transport
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /api/v1/transport/rewind [post]
func (s *Server) handleRewind(c *gin.Context) {
	s.withPlayer(c, func(p *player.Player) {
		p.Rewind()
		c.JSON(http.StatusOK, gin.H{"time": p.CurrentTime()})
	})
}

type seekRequest struct {
	Time float64 `json:"time"`
}

// handleSeek godoc
// @Summary Seek to a time position
// @Description Scrubs the timeline to the given position in seconds, restoring channel state
// @Tags transport
// @Accept json
// @Produce json
// @Param request body seekRequest true "Target time in seconds"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/transport/seek [post]
func (s *Server) handleSeek(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Time < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time must not be negative"})
		return
	}
	s.withPlayer(c, func(p *player.Player) {
		p.GotoTime(req.Time)
		c.JSON(http.StatusOK, gin.H{"time": p.CurrentTime()})
	})
}

type speedRequest struct {
	Speed float64 `json:"speed"`
}

// handleSpeed godoc
// @Summary Set the playback speed multiplier
// @Tags transport
// @Accept json
// @Produce json
// @Param request body speedRequest true "Speed multiplier, must be positive"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/transport/speed [put]
func (s *Server) handleSpeed(c *gin.Context) {
	var req speedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withPlayer(c, func(p *player.Player) {
		if err := p.SetSpeed(req.Speed); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"speed": p.Speed()})
	})
}

type clockRequest struct {
	Frequency float64 `json:"frequency"`
}

// handleClock godoc
// @Summary Set the tick rate
// @Tags transport
// @Accept json
// @Produce json
// @Param request body clockRequest true "Tick rate in Hz, must be positive"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/transport/clock [put]
func (s *Server) handleClock(c *gin.Context) {
	var req clockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withPlayer(c, func(p *player.Player) {
		if err := p.SetClockFrequency(req.Frequency); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"clock_frequency": p.ClockFrequency()})
	})
}

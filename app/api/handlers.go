package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/tldr-digest/app/cache"
	"github.com/lysyi3m/tldr-digest/app/contact"
	"github.com/lysyi3m/tldr-digest/app/feed"
	"github.com/lysyi3m/tldr-digest/app/tasks"
)

// revalidateInterval throttles refreshes enqueued by readers of a stale digest.
const revalidateInterval = time.Minute

// NewHandler wires the HTTP handlers. runs may be nil when no pipeline
// status is available.
func NewHandler(store *cache.Store, registry *feed.Registry, scheduler tasks.TaskSchedulerInterface,
	runs tasks.RunStatusInterface, newTask func(trigger tasks.Trigger) tasks.TaskInterface,
	relay *contact.Relay, baseURL, version string) *Handler {
	return &Handler{
		store:     store,
		registry:  registry,
		generator: feed.NewGenerator(),
		scheduler: scheduler,
		runs:      runs,
		newTask:   newTask,
		relay:     relay,
		baseURL:   strings.TrimRight(baseURL, "/"),
		version:   version,
		now:       time.Now,
	}
}

// GetDigest serves the cached digest, stale or not. A stale or missing
// digest also enqueues a refresh, so the next read sees fresh items.
func (h *Handler) GetDigest(c *gin.Context) {
	entry, fresh, err := h.store.ReadLatest(c.Request.Context(), cache.Key)
	if err != nil {
		slog.Error("Cache error", "operation", "read_digest", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cache error"})
		return
	}

	if !fresh {
		h.revalidate()
	}

	response := NewDigestResponse(entry, fresh, h.lastRun())

	c.Header("X-Digest-Items", strconv.Itoa(len(response.Items)))
	c.JSON(http.StatusOK, response)
}

func (h *Handler) lastRun() *tasks.RunStatus {
	if h.runs == nil {
		return nil
	}
	status, ok := h.runs.LastRun()
	if !ok {
		return nil
	}
	return &status
}

// revalidate enqueues at most one refresh per revalidateInterval. A full
// queue already holds a pending run, so that error is ignored.
func (h *Handler) revalidate() {
	h.revalidateMu.Lock()
	defer h.revalidateMu.Unlock()

	now := h.now()
	if !h.lastRevalidate.IsZero() && now.Sub(h.lastRevalidate) < revalidateInterval {
		return
	}

	err := h.scheduler.EnqueueTask(h.newTask(tasks.TriggerStale))
	if err != nil && !errors.Is(err, tasks.ErrQueueFull) {
		slog.Error("Error enqueueing revalidation", "error", err)
		return
	}
	h.lastRevalidate = now
}

func (h *Handler) GetDigestRSS(c *gin.Context) {
	entry, _, err := h.store.ReadLatest(c.Request.Context(), cache.Key)
	if err != nil {
		slog.Error("Cache error", "operation", "read_digest", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	channel := feed.Channel{
		Link:    h.baseURL,
		Version: h.version,
	}
	if h.baseURL != "" {
		channel.SelfURL = h.baseURL + "/digest.rss"
	}

	var items []feed.Item
	if entry != nil {
		items = entry.Items
		channel.BuiltAt = entry.WrittenAt
	}

	rss, err := h.generator.Run(channel, items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Digest-Items", strconv.Itoa(len(items)))
	if entry != nil {
		c.Header("X-Last-Updated", entry.WrittenAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   len(h.registry.SupportedSources()),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	backend := h.store.Backend()
	cacheHealth := map[string]interface{}{
		"backend": backend.Name(),
		"status":  "healthy",
	}
	status := http.StatusOK
	if err := backend.Ping(ctx); err != nil {
		cacheHealth["status"] = "unhealthy"
		cacheHealth["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	health["cache"] = cacheHealth

	c.JSON(status, health)
}

func (h *Handler) APIRefreshDigest(c *gin.Context) {
	task := h.newTask(tasks.TriggerManual)

	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refresh task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Digest refresh enqueued",
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}

func (h *Handler) PostContact(c *gin.Context) {
	var msg contact.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		slog.Debug("Unreadable contact body", "error", err)
	}

	reply, err := h.relay.Submit(c.Request.Context(), clientID(c), msg)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": reply})
	case errors.Is(err, contact.ErrCooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please wait."})
	case errors.Is(err, contact.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded."})
	case errors.Is(err, contact.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name or message"})
	case errors.Is(err, contact.ErrTooLong):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Input too long"})
	case errors.Is(err, contact.ErrProvider):
		slog.Error("Contact delivery failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Email provider error"})
	default:
		slog.Error("Contact handler error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

// clientID is the first X-Forwarded-For entry, else the peer address.
func clientID(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	return c.RemoteIP()
}

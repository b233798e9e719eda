package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/model"
	"interview-scheduler/internal/store"
	"interview-scheduler/internal/validation"
)

// GET /api/jobs
func (a *App) ListPublishedJobsHandler(c *gin.Context) {
	a.listJobs(c, true)
}

// GET /api/jobs/:id
func (a *App) GetPublishedJobHandler(c *gin.Context) {
	job, err := a.Jobs.GetJob(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && !job.IsPublished) {
		a.respondError(c, apperror.NotFound("job not found"))
		return
	}
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	c.JSON(http.StatusOK, job)
}

// GET /api/admin/jobs
func (a *App) ListJobsHandler(c *gin.Context) {
	a.listJobs(c, false)
}

func (a *App) listJobs(c *gin.Context, publishedOnly bool) {
	all, err := a.Jobs.ListJobs(c.Request.Context())
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	out := make([]model.JobPost, 0, len(all))
	for _, j := range all {
		if publishedOnly && !j.IsPublished {
			continue
		}
		out = append(out, j)
	}
	c.JSON(http.StatusOK, jobsResp{Jobs: out, Count: len(out)})
}

// POST /api/admin/jobs
func (a *App) CreateJobHandler(c *gin.Context) {
	var req jobReq
	if !a.bindJSON(c, &req) {
		return
	}
	if err := req.normalize(); err != nil {
		a.respondError(c, err)
		return
	}

	now := time.Now().UTC()
	job := req.apply(model.JobPost{ID: uuid.NewString(), CreatedAt: now})
	job.UpdatedAt = now

	ok, err := a.Jobs.CreateJob(c.Request.Context(), &job)
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	if !ok {
		a.respondError(c, apperror.Conflict("job already exists"))
		return
	}
	c.JSON(http.StatusCreated, job)
}

// PUT /api/admin/jobs/:id
func (a *App) UpdateJobHandler(c *gin.Context) {
	var req jobReq
	if !a.bindJSON(c, &req) {
		return
	}
	if err := req.normalize(); err != nil {
		a.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	existing, err := a.Jobs.GetJob(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		a.respondError(c, apperror.NotFound("job not found"))
		return
	}
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}

	job := req.apply(*existing)
	job.UpdatedAt = time.Now().UTC()
	ok, err := a.Jobs.UpdateJob(ctx, &job)
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	if !ok {
		a.respondError(c, apperror.NotFound("job not found"))
		return
	}
	c.JSON(http.StatusOK, job)
}

// DELETE /api/admin/jobs/:id
func (a *App) DeleteJobHandler(c *gin.Context) {
	ok, err := a.Jobs.DeleteJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, apperror.Transient(err))
		return
	}
	if !ok {
		a.respondError(c, apperror.NotFound("job not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

var jobRules = validation.New()

// normalize trims the payload and drops blank contact emails, then validates
// what is left.
func (r *jobReq) normalize() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Salary = strings.TrimSpace(r.Salary)
	r.ApplyLink = strings.TrimSpace(r.ApplyLink)

	emails := make([]string, 0, len(r.ContactEmails))
	for _, e := range r.ContactEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			emails = append(emails, e)
		}
	}
	r.ContactEmails = emails
	return validation.Error(jobRules.Struct(r), nil)
}

func (r *jobReq) apply(j model.JobPost) model.JobPost {
	j.Title = r.Title
	j.Description = r.Description
	j.Salary = r.Salary
	j.ApplyLink = r.ApplyLink
	j.ContactEmails = r.ContactEmails
	j.IsPublished = r.IsPublished
	return j
}

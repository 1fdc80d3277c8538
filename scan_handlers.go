package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"ibanscan/models"
	"ibanscan/pkg/iban"
	"ibanscan/pkg/ocr"
	"ibanscan/pkg/scan"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sourceCamera = models.SourceCamera
	sourcePhoto  = models.SourcePhoto
)

func (s *server) createSessionHandler(c *gin.Context) {
	username := c.GetString("username")
	sess := s.registry.Create(scan.WithOwner(username), scan.WithOnStable(func(res scan.Result) {
		s.storeResult(username, res, "")
	}))
	c.JSON(http.StatusCreated, gin.H{"id": sess.ID()})
}

// sessionFor resolves :id and checks the caller owns it. Unknown and foreign
// sessions both answer 404.
func (s *server) sessionFor(c *gin.Context) (*scan.Session, bool) {
	sess, err := s.registry.Get(c.Param("id"))
	if err != nil || sess.Owner() != c.GetString("username") {
		c.JSON(http.StatusNotFound, gin.H{"error": scan.ErrSessionNotFound.Error()})
		return nil, false
	}
	return sess, true
}

func (s *server) getSessionHandler(c *gin.Context) {
	sess, ok := s.sessionFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Status())
}

func (s *server) sessionLinesHandler(c *gin.Context) {
	sess, ok := s.sessionFor(c)
	if !ok {
		return
	}
	var req struct {
		Lines []string `json:"lines"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.ProcessLines(req.Lines))
}

func (s *server) sessionFrameHandler(c *gin.Context) {
	sess, ok := s.sessionFor(c)
	if !ok {
		return
	}
	file, err := c.FormFile("frame")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "frame missing"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "frame too large (max 5MB)"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read frame"})
		return
	}
	defer f.Close()
	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image"})
		return
	}
	report, err := sess.ProcessImage(c.Request.Context(), img)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scan.ErrNoRecognizer) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *server) rearmSessionHandler(c *gin.Context) {
	sess, ok := s.sessionFor(c)
	if !ok {
		return
	}
	sess.Rearm()
	c.JSON(http.StatusOK, sess.Status())
}

func (s *server) deleteSessionHandler(c *gin.Context) {
	if _, ok := s.sessionFor(c); !ok {
		return
	}
	s.registry.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// photoHandler reads an IBAN from one uploaded still photo and stores the
// photo and the result for the caller.
func (s *server) photoHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large (max 5MB)"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image"})
		return
	}

	m, line, err := s.photos.ReadIban(c.Request.Context(), img)
	if errors.Is(err, ocr.ErrNoIban) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ocr failed"})
		return
	}

	username := c.GetString("username")
	stored := ""
	if s.db != nil {
		dir := filepath.Join(s.cfg.Server.UploadBase, "photos", username)
		name := uuid.NewString() + "_" + filepath.Base(file.Filename)
		if err := os.MkdirAll(dir, 0755); err == nil {
			if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err == nil {
				stored = name
			}
		}
	}
	res := scan.Result{
		Digits:    m.Digits,
		Country:   m.Country,
		Formatted: iban.Format(m.Digits, m.Country),
		Source:    sourcePhoto,
		At:        s.now(),
	}
	created := s.storeResult(username, res, stored)
	c.JSON(http.StatusOK, gin.H{
		"iban":      res.Digits,
		"country":   res.Country,
		"formatted": res.Formatted,
		"line":      line,
		"span":      []int{m.Start, m.End},
		"stored":    created,
	})
}

// storeResult persists an accepted IBAN for username; false when there is no
// database, the user is gone, or the row already existed.
func (s *server) storeResult(username string, res scan.Result, fileName string) bool {
	if s.db == nil {
		return false
	}
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		log.Printf("SCAN store skipped: user %s: %v", username, err)
		return false
	}
	row := models.IbanScan{
		UserID:    user.ID,
		Iban:      res.Digits,
		SessionID: res.SessionID,
		Formatted: res.Formatted,
		Source:    res.Source,
		Frames:    res.Frame,
		FileName:  fileName,
	}
	created, err := models.SaveScan(s.db, &row)
	if err != nil {
		log.Printf("SCAN store failed: %v", err)
		return false
	}
	return created
}

func (s *server) listScansHandler(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var items []models.IbanScan
	q := s.db.Model(&models.IbanScan{})
	if c.GetString("role") != models.RoleAdministrator {
		q = q.Where("user_id = ?", user.ID)
	}
	if src := c.Query("source"); src != "" {
		q = q.Where("source = ?", src)
	}
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/docbase/internal/collection"
	"github.com/gogotex/docbase/internal/document"
	"github.com/gogotex/docbase/internal/document/repository"
	"github.com/gogotex/docbase/internal/document/service"
	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/pkg/middleware"
	"github.com/zeebo/xxh3"
)

type collectionView struct {
	Address   identity.Key `json:"address"`
	Authority identity.Key `json:"authority"`
	Count     uint64       `json:"count"`
}

type documentView struct {
	Address    identity.Key `json:"address"`
	Authority  identity.Key `json:"authority"`
	Collection identity.Key `json:"collection"`
	Content    string       `json:"content"`
}

func viewCollection(addr identity.Key, c *collection.Collection) collectionView {
	return collectionView{Address: addr, Authority: c.Authority, Count: c.Count}
}

func viewDocument(addr identity.Key, d *document.Document) documentView {
	return documentView{Address: addr, Authority: d.Authority, Collection: d.Collection, Content: d.Text()}
}

// RegisterDocumentRoutes mounts the record API on rg. The auth handlers run in
// front of every mutating route and are expected to set the signer through
// middleware.AuthorityKey; reads are public.
func RegisterDocumentRoutes(rg *gin.RouterGroup, svc service.Service, auth ...gin.HandlerFunc) {
	signed := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, auth...), h)
	}

	rg.POST("/collections", signed(func(c *gin.Context) {
		var req struct {
			Address string `json:"address"`
			Seed    string `json:"seed"`
		}
		// an empty body asks for a random address
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		signer, _ := middleware.Authority(c)
		var addr identity.Key
		var err error
		switch {
		case req.Address != "" && req.Seed != "":
			c.JSON(http.StatusBadRequest, gin.H{"error": "address and seed are mutually exclusive"})
			return
		case req.Address != "":
			addr, err = identity.Parse(req.Address)
		case req.Seed != "":
			addr = identity.DeriveCollection(signer, req.Seed)
		default:
			addr, err = identity.NewAddress()
		}
		if err != nil {
			writeError(c, err)
			return
		}
		col, err := svc.CreateCollection(c.Request.Context(), signer, addr)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, viewCollection(addr, col))
	})...)

	rg.GET("/collections/:address", func(c *gin.Context) {
		addr, err := identity.Parse(c.Param("address"))
		if err != nil {
			writeError(c, err)
			return
		}
		col, err := svc.GetCollection(c.Request.Context(), addr)
		if err != nil {
			writeError(c, err)
			return
		}
		b, _ := col.MarshalBinary()
		writeRecord(c, recordTag(addr, b), viewCollection(addr, col))
	})

	rg.POST("/collections/:address/documents", signed(func(c *gin.Context) {
		coll, err := identity.Parse(c.Param("address"))
		if err != nil {
			writeError(c, err)
			return
		}
		var req struct {
			Address string `json:"address"`
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var addr identity.Key
		if req.Address != "" {
			addr, err = identity.Parse(req.Address)
		} else {
			addr, err = identity.NewAddress()
		}
		if err != nil {
			writeError(c, err)
			return
		}
		signer, _ := middleware.Authority(c)
		d, err := svc.CreateDocument(c.Request.Context(), signer, addr, coll, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, viewDocument(addr, d))
	})...)

	rg.GET("/documents/:address", func(c *gin.Context) {
		addr, err := identity.Parse(c.Param("address"))
		if err != nil {
			writeError(c, err)
			return
		}
		d, err := svc.GetDocument(c.Request.Context(), addr)
		if err != nil {
			writeError(c, err)
			return
		}
		b, _ := d.MarshalBinary()
		writeRecord(c, recordTag(addr, b, d.Collection[:]), viewDocument(addr, d))
	})

	rg.PUT("/documents/:address", signed(func(c *gin.Context) {
		addr, err := identity.Parse(c.Param("address"))
		if err != nil {
			writeError(c, err)
			return
		}
		var req struct {
			Collection string `json:"collection" binding:"required"`
			Content    string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		coll, err := identity.Parse(req.Collection)
		if err != nil {
			writeError(c, err)
			return
		}
		signer, _ := middleware.Authority(c)
		d, err := svc.UpdateDocument(c.Request.Context(), signer, addr, coll, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, viewDocument(addr, d))
	})...)

	rg.DELETE("/documents/:address", signed(func(c *gin.Context) {
		addr, err := identity.Parse(c.Param("address"))
		if err != nil {
			writeError(c, err)
			return
		}
		coll, err := identity.Parse(c.Query("collection"))
		if err != nil {
			writeError(c, err)
			return
		}
		signer, _ := middleware.Authority(c)
		col, err := svc.DeleteDocument(c.Request.Context(), signer, addr, coll)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, viewCollection(coll, col))
	})...)
}

// recordTag is the ETag of a stored record: a hash over its address and
// stored bytes.
func recordTag(addr identity.Key, parts ...[]byte) string {
	h := xxh3.New()
	h.Write(addr[:])
	for _, p := range parts {
		h.Write(p)
	}
	return fmt.Sprintf(`"%016x"`, h.Sum64())
}

// writeRecord answers a read, or 304 when the client already holds tag.
func writeRecord(c *gin.Context, tag string, v interface{}) {
	c.Header("ETag", tag)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, v)
}

// statusOf maps a fault kind onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, fault.ErrMissingSigner):
		return http.StatusUnauthorized
	case fault.IsErrAuthorization(err):
		return http.StatusForbidden
	case errors.Is(err, fault.ErrWrongRecordKind), fault.IsErrNotFound(err):
		return http.StatusNotFound
	case fault.IsErrAllocation(err), errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, fault.ErrContentTooLarge):
		return http.StatusRequestEntityTooLarge
	case fault.IsErrInvalid(err):
		return http.StatusBadRequest
	case fault.IsErrRange(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

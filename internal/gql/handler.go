package gql

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"

	"pdflibrary/internal/middleware"
)

type requestBody struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

type Handler struct {
	schema graphql.Schema
	authn  *middleware.Authenticator
	log    logrus.FieldLogger
}

func NewHandler(schema graphql.Schema, authn *middleware.Authenticator, log logrus.FieldLogger) *Handler {
	return &Handler{schema: schema, authn: authn, log: log}
}

// RegisterRoutes mounts GET and POST /graphql under api. Authentication is
// checked per resolver, so no auth middleware is attached here.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/graphql", h.Serve)
	api.POST("/graphql", h.Serve)
}

func (h *Handler) Serve(c *gin.Context) {
	req, ok := parseRequest(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"data":   nil,
			"errors": []gin.H{{"message": "Must provide query string"}},
		})
		return
	}

	user, _ := h.authn.ResolveRequest(c.Request, false)
	auth := &requestAuth{user: user}
	if user != nil {
		middleware.SetUser(c, user)
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        withAuth(c.Request.Context(), auth),
	})

	if auth.denied.Load() {
		c.JSON(http.StatusUnauthorized, gin.H{
			"data": nil,
			"errors": []gin.H{{
				"message":    errAuthentication.message,
				"extensions": errAuthentication.Extensions(),
			}},
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseRequest(c *gin.Context) (requestBody, bool) {
	var req requestBody
	if c.Request.Method == http.MethodGet {
		req.Query = c.Query("query")
		req.OperationName = c.Query("operationName")
		if v := c.Query("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, false
			}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		return req, false
	}
	return req, req.Query != ""
}

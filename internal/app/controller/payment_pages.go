package controller

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/homestay-backend/internal/middleware"
)

// The gateway posts the browser back to us, so callback replies are pages, not JSON
var paymentPage = template.Must(template.New("payment").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{if .RedirectURL}}<meta http-equiv="refresh" content="3;url={{.RedirectURL}}">{{end}}
<style>body{font-family:sans-serif;max-width:32rem;margin:4rem auto;text-align:center}</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .Reference}}<p>Reference: <strong>{{.Reference}}</strong></p>{{end}}
{{if .RedirectURL}}<p><a href="{{.RedirectURL}}">Return to your application</a></p>{{end}}
</body>
</html>`))

type paymentPageData struct {
	Title       string
	Message     string
	Reference   string
	RedirectURL string
}

func renderPaymentPage(c *gin.Context, status int, data paymentPageData) {
	var buf bytes.Buffer
	if err := paymentPage.Execute(&buf, data); err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to render payment page", err, nil)
		c.String(http.StatusInternalServerError, "Payment status could not be displayed")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

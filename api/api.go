/*
Copyright 2025 Matchbook Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/matchbookhq/matchbook"
)

type Api struct {
	matchbook *matchbook.Matchbook
	router    *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/transactions", a.SubmitTransaction)
	router.GET("/transactions/:id", a.GetTransaction)
	router.GET("/matches/:transaction_id", a.GetMatches)

	router.POST("/invoices/upload", a.UploadInvoices)
	router.GET("/invoices/:id", a.GetInvoice)

	router.POST("/reprocess", a.ReprocessUnmatched)

	return a.router
}

func NewAPI(m *matchbook.Matchbook) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{matchbook: m, router: r}
}

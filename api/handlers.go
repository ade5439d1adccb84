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
	"net/http"

	"github.com/sirupsen/logrus"

	model2 "github.com/matchbookhq/matchbook/api/model"
	"github.com/matchbookhq/matchbook/internal/apierror"
	"github.com/matchbookhq/matchbook/model"

	"github.com/gin-gonic/gin"
)

// SubmitTransaction records a bank transaction and queues it for matching.
// Responds 201 with the stored transaction; matching happens asynchronously.
func (a Api) SubmitTransaction(c *gin.Context) {
	var newTransaction model2.SubmitTransaction
	if err := c.ShouldBindJSON(&newTransaction); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := newTransaction.ValidateSubmitTransaction(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.matchbook.SubmitTransaction(c.Request.Context(), newTransaction.ToTransaction())
	if err != nil {
		a.jsonError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	txn, err := a.matchbook.GetTransaction(c.Request.Context(), id)
	if err != nil {
		a.jsonError(c, err)
		return
	}

	c.JSON(http.StatusOK, txn)
}

// GetMatches returns the recorded match set for a transaction, best score
// first. An empty array means matching ran and found nothing; 404 means the
// transaction itself is unknown.
func (a Api) GetMatches(c *gin.Context) {
	id, passed := c.Params.Get("transaction_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction_id is required. pass id in the route /:transaction_id"})
		return
	}

	if _, err := a.matchbook.GetTransaction(c.Request.Context(), id); err != nil {
		a.jsonError(c, err)
		return
	}

	matches, err := a.matchbook.GetMatches(c.Request.Context(), id)
	if err != nil {
		a.jsonError(c, err)
		return
	}
	if matches == nil {
		matches = []*model.Match{}
	}

	c.JSON(http.StatusOK, gin.H{"transaction_id": id, "matches": matches})
}

// UploadInvoices imports invoices from an uploaded CSV file.
func (a Api) UploadInvoices(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	count, err := a.matchbook.ImportInvoicesCSV(c.Request.Context(), file)
	if err != nil {
		a.jsonError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"imported": count})
}

func (a Api) GetInvoice(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	invoice, err := a.matchbook.GetInvoice(c.Request.Context(), id)
	if err != nil {
		a.jsonError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ReprocessUnmatched re-queues matching for every transaction with no match
// rows.
func (a Api) ReprocessUnmatched(c *gin.Context) {
	queued, err := a.matchbook.ReprocessUnmatched(c.Request.Context())
	if err != nil {
		a.jsonError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"queued": queued})
}

func (a Api) jsonError(c *gin.Context, err error) {
	logrus.Error(err)
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}

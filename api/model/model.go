/*
Copyright 2024 Blnk Finance Authors.

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
package model

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// indexList accepts "", "all" or a comma separated list of non-negative integers.
// Duplicates and range are checked against the box later.
var indexList = regexp.MustCompile(`^(?i:all)?$|^\s*\d+\s*(,\s*\d+\s*)*$`)

type AcceptRecord struct {
	AccountID string `json:"account_id"`
}

type CancelRecord struct {
	AccountID string `json:"account_id"`
}

type AcceptInbox struct {
	Indices string `json:"indices"`
	Type    string `json:"type"`
}

type AcceptPayments struct {
	Indices string `json:"indices"`
	Type    string `json:"type"`
}

type CancelPayments struct {
	AccountID string `json:"account_id"`
	Indices   string `json:"indices"`
}

type DiscardPayments struct {
	ServerID string `json:"server_id"`
	Indices  string `json:"indices"`
}

// BatchResult reports the outcome code of a batch operation: 1 success, 0 nothing to do,
// -1 failure.
type BatchResult struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *AcceptInbox) ValidateAcceptInbox() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Indices, validation.Match(indexList).Error("must be 'all' or a comma separated list of indices")),
		validation.Field(&a.Type, validation.In("", "all", "transfers", "receipts")),
	)
}

func (a *AcceptPayments) ValidateAcceptPayments() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Indices, validation.Match(indexList).Error("must be 'all' or a comma separated list of indices")),
		validation.Field(&a.Type, validation.In("", "any", "cheque", "voucher", "invoice", "purse", "paymentPlan")),
	)
}

func (c *CancelPayments) ValidateCancelPayments() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Indices, validation.Match(indexList).Error("must be 'all' or a comma separated list of indices")),
	)
}

func (d *DiscardPayments) ValidateDiscardPayments() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ServerID, validation.Required),
		validation.Field(&d.Indices, validation.Match(indexList).Error("must be 'all' or a comma separated list of indices")),
	)
}

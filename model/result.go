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

// ActionResult is the outcome of a single record action.
// Callers that only need a yes/no answer use Succeeded.
type ActionResult int

const (
	ResultSuccess ActionResult = iota
	ResultPreconditionFailed
	ResultNotFound
	ResultDownstreamFailed
)

// Succeeded reports whether the action completed.
func (r ActionResult) Succeeded() bool {
	return r == ResultSuccess
}

func (r ActionResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultPreconditionFailed:
		return "precondition_failed"
	case ResultNotFound:
		return "not_found"
	case ResultDownstreamFailed:
		return "downstream_failed"
	}
	return "unknown"
}

// ReplyStatus is the interpretation of a notary reply.
type ReplyStatus int

const (
	ReplyMalformed ReplyStatus = iota
	ReplyFailure
	ReplySuccess
)

func (s ReplyStatus) String() string {
	switch s {
	case ReplySuccess:
		return "success"
	case ReplyFailure:
		return "failure"
	}
	return "malformed"
}

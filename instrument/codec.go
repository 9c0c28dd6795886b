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

package instrument

import (
	"time"

	"github.com/blnkfinance/recordlist/internal/codec"
	"github.com/blnkfinance/recordlist/model"
	"github.com/pkg/errors"
)

// ErrUndecodable is returned when contents are not a serialized instrument.
var ErrUndecodable = errors.New("contents are not a decodable instrument")

// Decoder turns opaque box entry contents into an instrument.
type Decoder interface {
	Decode(raw []byte) (*model.Instrument, error)
}

// Codec reads and writes instruments as deterministic CBOR.
type Codec struct{}

// NewCodec returns the CBOR instrument codec.
func NewCodec() *Codec {
	return &Codec{}
}

// wireInstrument is the serialized form. Times travel as unix seconds.
type wireInstrument struct {
	Type                   string `cbor:"1,keyasint"`
	ValidFrom              int64  `cbor:"2,keyasint,omitempty"`
	ValidTo                int64  `cbor:"3,keyasint,omitempty"`
	Amount                 int64  `cbor:"4,keyasint"`
	Memo                   string `cbor:"5,keyasint,omitempty"`
	SenderNymID            string `cbor:"6,keyasint,omitempty"`
	SenderAcctID           string `cbor:"7,keyasint,omitempty"`
	RecipientNymID         string `cbor:"8,keyasint,omitempty"`
	RecipientAcctID        string `cbor:"9,keyasint,omitempty"`
	OpeningNum             int64  `cbor:"10,keyasint,omitempty"`
	DisplayNum             int64  `cbor:"11,keyasint,omitempty"`
	NotaryID               string `cbor:"12,keyasint,omitempty"`
	InstrumentDefinitionID string `cbor:"13,keyasint,omitempty"`
}

// Decode parses raw contents. It does not run the instrument's validity self-check.
func (c *Codec) Decode(raw []byte) (*model.Instrument, error) {
	if len(raw) == 0 {
		return nil, ErrUndecodable
	}

	var w wireInstrument
	if err := codec.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(ErrUndecodable, err.Error())
	}
	if w.Type == "" {
		return nil, errors.Wrap(ErrUndecodable, "missing instrument type")
	}

	return &model.Instrument{
		Type:                   model.InstrumentType(w.Type),
		ValidFrom:              fromUnix(w.ValidFrom),
		ValidTo:                fromUnix(w.ValidTo),
		Amount:                 w.Amount,
		Memo:                   w.Memo,
		SenderNymID:            w.SenderNymID,
		SenderAcctID:           w.SenderAcctID,
		RecipientNymID:         w.RecipientNymID,
		RecipientAcctID:        w.RecipientAcctID,
		OpeningNum:             w.OpeningNum,
		DisplayNum:             w.DisplayNum,
		NotaryID:               w.NotaryID,
		InstrumentDefinitionID: w.InstrumentDefinitionID,
	}, nil
}

// Encode serializes inst.
func (c *Codec) Encode(inst *model.Instrument) ([]byte, error) {
	if inst == nil {
		return nil, errors.New("instrument is nil")
	}
	return codec.Marshal(wireInstrument{
		Type:                   string(inst.Type),
		ValidFrom:              toUnix(inst.ValidFrom),
		ValidTo:                toUnix(inst.ValidTo),
		Amount:                 inst.Amount,
		Memo:                   inst.Memo,
		SenderNymID:            inst.SenderNymID,
		SenderAcctID:           inst.SenderAcctID,
		RecipientNymID:         inst.RecipientNymID,
		RecipientAcctID:        inst.RecipientAcctID,
		OpeningNum:             inst.OpeningNum,
		DisplayNum:             inst.DisplayNum,
		NotaryID:               inst.NotaryID,
		InstrumentDefinitionID: inst.InstrumentDefinitionID,
	})
}

func fromUnix(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

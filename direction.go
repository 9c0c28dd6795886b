package recordlist

import "github.com/blnkfinance/recordlist/model"

// partyRole is the owner's side of a transaction.
type partyRole int

const (
	roleUnrelated partyRole = iota
	roleSender
	roleRecipient
)

type paymentDirectionRow struct {
	role     partyRole
	inverted bool
	outgoing bool
}

// paymentDirections decides direction for payment record and expired box entries.
// Notices about payment plans and smart contracts are inverted: the nym that sent the
// proposal is the one that receives the money.
var paymentDirections = []paymentDirectionRow{
	{role: roleSender, inverted: false, outgoing: true},
	{role: roleRecipient, inverted: false, outgoing: false},
	{role: roleUnrelated, inverted: false, outgoing: false},
	{role: roleSender, inverted: true, outgoing: false},
	{role: roleRecipient, inverted: true, outgoing: true},
	{role: roleUnrelated, inverted: true, outgoing: false},
}

func roleOf(id, senderID, recipientID string) partyRole {
	switch {
	case id == "":
		return roleUnrelated
	case id == senderID:
		return roleSender
	case id == recipientID:
		return roleRecipient
	}
	return roleUnrelated
}

func invertsDirection(entry model.BoxEntry) bool {
	if !entry.IsNotice() {
		return false
	}
	return entry.OriginType == model.OriginTypePaymentPlan || entry.OriginType == model.OriginTypeSmartContract
}

// paymentRecordOutgoing reports whether a settled payment entry left nymID.
// inst may be nil for abbreviated entries.
func paymentRecordOutgoing(nymID string, entry model.BoxEntry, inst *model.Instrument) bool {
	sender, recipient := entry.SenderNymID, entry.RecipientNymID
	if inst != nil && (inst.SenderNymID != "" || inst.RecipientNymID != "") {
		sender, recipient = inst.SenderNymID, inst.RecipientNymID
	}
	role := roleOf(nymID, sender, recipient)
	inverted := invertsDirection(entry)
	for _, row := range paymentDirections {
		if row.role == role && row.inverted == inverted {
			return row.outgoing
		}
	}
	return false
}

type accountDirectionRow struct {
	byAccount bool
	role      partyRole
	outgoing  bool
}

// accountDirections decides direction for account record box entries. Account ids are
// compared when the entry carries them, nym ids otherwise. Rows are checked in order.
var accountDirections = []accountDirectionRow{
	{byAccount: true, role: roleSender, outgoing: true},
	{byAccount: true, role: roleRecipient, outgoing: false},
	{byAccount: false, role: roleSender, outgoing: true},
	{byAccount: false, role: roleRecipient, outgoing: false},
}

func accountRecordOutgoing(account *model.Account, entry model.BoxEntry) bool {
	byAccount := entry.SenderAcctID != "" || entry.RecipientAcctID != ""
	var role partyRole
	if byAccount {
		role = roleOf(account.AccountID, entry.SenderAcctID, entry.RecipientAcctID)
	} else {
		role = roleOf(account.NymID, entry.SenderNymID, entry.RecipientNymID)
	}
	for _, row := range accountDirections {
		if row.byAccount == byAccount && row.role == role {
			return row.outgoing
		}
	}
	return false
}

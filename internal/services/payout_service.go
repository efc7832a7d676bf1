package services

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"

	"github.com/pickline/backend/internal/config"
	"github.com/pickline/backend/internal/models"
)

const Pacs008MessageType = "pacs.008.001.08"

// PayoutPublisher hands a pending withdrawal to the out-of-band payout
// process.
type PayoutPublisher interface {
	PublishWithdrawal(ctx context.Context, tx *models.Transaction, user *models.User) error
}

// PayoutInstruction is the JSON envelope pushed onto the payout queue.
type PayoutInstruction struct {
	TransactionID uuid.UUID `json:"transactionId"`
	UserID        uuid.UUID `json:"userId"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	MessageType   string    `json:"messageType"`
	XML           string    `json:"xml"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PayoutService struct {
	rdb    *redis.Client
	cfg    config.PayoutConfig
	logger *slog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewPayoutService(rdb *redis.Client, cfg config.PayoutConfig, logger *slog.Logger) *PayoutService {
	return &PayoutService{
		rdb:    rdb,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "payout")),
		now:    time.Now,
		newID:  uuid.New,
	}
}

// PublishWithdrawal builds the pacs.008 credit transfer for a withdrawal
// and appends it to the payout queue.
func (p *PayoutService) PublishWithdrawal(ctx context.Context, tx *models.Transaction, user *models.User) error {
	if p.rdb == nil {
		return fmt.Errorf("payout queue unavailable")
	}

	instruction, err := p.BuildInstruction(tx, user)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(instruction)
	if err != nil {
		return fmt.Errorf("failed to marshal payout instruction: %w", err)
	}

	if err := p.rdb.RPush(ctx, p.cfg.QueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue payout: %w", err)
	}

	p.logger.Info("payout enqueued",
		slog.String("transaction_id", tx.ID.String()),
		slog.String("queue", p.cfg.QueueKey),
	)
	return nil
}

// BuildInstruction renders the withdrawal as a pacs.008 XML document.
func (p *PayoutService) BuildInstruction(tx *models.Transaction, user *models.User) (*PayoutInstruction, error) {
	doc, err := p.CreatePacs008(tx, user)
	if err != nil {
		return nil, err
	}

	xmlData, err := ConvertToXML(doc)
	if err != nil {
		return nil, err
	}

	return &PayoutInstruction{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Amount:        Money(tx.Amount.Abs()),
		Currency:      p.cfg.Currency,
		MessageType:   Pacs008MessageType,
		XML:           xmlData,
		CreatedAt:     p.now().UTC(),
	}, nil
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
// paying the withdrawn amount to the user.
func (p *PayoutService) CreatePacs008(tx *models.Transaction, user *models.User) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if tx.Type != models.TxTypeWithdrawal {
		return nil, fmt.Errorf("%w: transaction %s is not a withdrawal", ErrValidation, tx.ID)
	}

	amount := tx.Amount.Abs().Round(MoneyPlaces).InexactFloat64()
	creDtTm := p.now().UTC()
	settlementDate := creDtTm
	txID := common.Max35Text(tx.ID.String())
	debtorName := common.Max140Text(p.cfg.DebtorName)
	creditorName := common.Max140Text(user.DisplayName)
	if user.DisplayName == "" {
		creditorName = common.Max140Text(user.Email)
	}
	bic := common.BICFIDec2014Identifier(p.cfg.DebtorAgentBIC)

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(p.newID().String()),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(p.cfg.Currency),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &txID,
					EndToEndId: common.Max35Text(tx.UserID.String()),
					TxId:       &txID,
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(p.cfg.Currency),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &bic,
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &debtorName,
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(tx.UserID.String()),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &creditorName,
				},
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts ISO20022 document to XML string
func ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

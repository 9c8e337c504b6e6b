package controller

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Canonical parameter names used to derive policy keys. A policy governs a
// parameter for every contract sharing the group the key was derived from.
const (
	ParamExpirationDate            = "EXPIRATION_DATE"
	ParamMaxDebtPerBlockMultiplier = "MAX_DEBT_PER_BLOCK_MULTIPLIER"
	ParamMinDebt                   = "MIN_DEBT"
	ParamMaxDebt                   = "MAX_DEBT"
	ParamCreditManagerDebtLimit    = "CREDIT_MANAGER_DEBT_LIMIT"
	ParamTokenLT                   = "TOKEN_LT"
	ParamForbidAdapter             = "FORBID_ADAPTER"
	ParamTokenLimit                = "TOKEN_LIMIT"
	ParamTokenQuotaIncreaseFee     = "TOKEN_QUOTA_INCREASE_FEE"
	ParamTotalDebtLimit            = "TOTAL_DEBT_LIMIT"
	ParamWithdrawFee               = "WITHDRAW_FEE"
	ParamTokenQuotaMinRate         = "TOKEN_QUOTA_MIN_RATE"
	ParamTokenQuotaMaxRate         = "TOKEN_QUOTA_MAX_RATE"
	ParamReservePriceFeedStatus    = "RESERVE_PRICE_FEED_STATUS"
	ParamUpdateBoundsAllowed       = "UPDATE_BOUNDS_ALLOWED"
)

// minRampDuration is the hard floor on liquidation-threshold ramp length,
// enforced in addition to whatever the policy allows.
const minRampDuration = 7 * 24 * time.Hour

// AuditEvent identifies the lifecycle milestone captured by an audit record.
type AuditEvent string

const (
	AuditEventQueued         AuditEvent = "queued"
	AuditEventCancelled      AuditEvent = "cancelled"
	AuditEventExecuted       AuditEvent = "executed"
	AuditEventPolicySet      AuditEvent = "policy_set"
	AuditEventPolicyDisabled AuditEvent = "policy_disabled"
	AuditEventGroupSet       AuditEvent = "group_set"
	AuditEventVetoAdminSet   AuditEvent = "veto_admin_set"
)

// AuditRecord captures an immutable governance lifecycle entry. Records are
// written append-only under a monotonically increasing sequence so operators
// can reconstruct the exact ordering of parameter-change actions. The coarse
// ParameterChecksFailed surface makes this trail the primary debugging tool.
type AuditRecord struct {
	Sequence  uint64         `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	Event     AuditEvent     `json:"event"`
	Actor     common.Address `json:"actor"`
	TxHash    common.Hash    `json:"tx_hash,omitempty"`
	Parameter string         `json:"parameter,omitempty"`
	Details   string         `json:"details,omitempty"`
}

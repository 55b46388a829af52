package models

import "time"

// SubmitRequest represents the incoming portfolio submission
type SubmitRequest struct {
	Holdings []Holding `json:"holdings" validate:"required,min=1"`
	Cash     float64   `json:"cash" validate:"gte=0"`
}

// Holding represents a single raw ticker + quantity pair, unvalued
type Holding struct {
	Ticker   string  `json:"ticker" validate:"required"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

// ValuedHolding is a holding enriched with live market data.
// Value is always Quantity * Price, recomputed on every write.
type ValuedHolding struct {
	Ticker      string  `json:"ticker" firestore:"ticker"`
	Quantity    float64 `json:"quantity" firestore:"quantity"`
	CompanyName string  `json:"companyName" firestore:"companyName"`
	Price       float64 `json:"price" firestore:"price"`
	Sector      string  `json:"sector" firestore:"sector"`
	Value       float64 `json:"value" firestore:"value"`
}

// SectorAllocation represents one sector's share of the stock value
type SectorAllocation struct {
	Sector     string  `json:"sector" firestore:"sector"`
	Value      float64 `json:"value" firestore:"value"`
	Percentage float64 `json:"percentage" firestore:"percentage"`
}

// InsightBundle is the narrative analysis attached to a portfolio.
// All fields are always populated; when the AI provider is unreachable
// the bundle carries placeholder prose plus locally computed allocations.
type InsightBundle struct {
	Summary                 string             `json:"summary" firestore:"summary"`
	SectorExposure          string             `json:"sectorExposure" firestore:"sectorExposure"`
	DiversificationAnalysis string             `json:"diversificationAnalysis" firestore:"diversificationAnalysis"`
	InvestmentThesis        string             `json:"investmentThesis" firestore:"investmentThesis"`
	SectorAllocations       []SectorAllocation `json:"sectorAllocations" firestore:"sectorAllocations"`
}

// Portfolio is the persisted document, one per owner by convention
type Portfolio struct {
	ID         string          `json:"id" firestore:"id"`
	OwnerID    string          `json:"ownerId" firestore:"ownerId"`
	Holdings   []ValuedHolding `json:"holdings" firestore:"holdings"`
	Cash       float64         `json:"cash" firestore:"cash"`
	TotalValue float64         `json:"totalValue" firestore:"totalValue"`
	Insights   InsightBundle   `json:"insights" firestore:"insights"`
	CreatedAt  time.Time       `json:"createdAt" firestore:"createdAt"`
	IsPublic   bool            `json:"isPublic" firestore:"isPublic"`
	Views      int64           `json:"views" firestore:"views"`
}

// PortfolioContents names the only fields a content write may replace.
// Identity, createdAt, visibility and views are never written through
// this path.
type PortfolioContents struct {
	Holdings   []ValuedHolding
	Cash       float64
	TotalValue float64
	Insights   InsightBundle
}

// SubmitResult is returned by a successful submission
type SubmitResult struct {
	ID               string `json:"id"`
	AnalysisDegraded bool   `json:"analysisDegraded,omitempty"`
}

// UpdateRequest represents a partial update through PUT /portfolios/:id.
// Nil fields are left untouched; holdings/cash trigger re-enrichment.
type UpdateRequest struct {
	Holdings []Holding `json:"holdings,omitempty"`
	Cash     *float64  `json:"cash,omitempty"`
	IsPublic *bool     `json:"isPublic,omitempty"`
}

// User is a registered account
type User struct {
	ID           string    `json:"id" firestore:"id"`
	Email        string    `json:"email" firestore:"email"`
	PasswordHash string    `json:"-" firestore:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
}

// Credentials is the signup/login request body
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse carries the issued token and the public user view
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo is the public projection of a User
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ErrorResponse represents API error response. Error carries the stable
// machine-checkable kind, Message the human-readable reason.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

package server

import (
	"net/http"
	"strings"

	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
	"github.com/gin-gonic/gin"
)

type createMerchantRequest struct {
	UserID       string `json:"user_id"`
	Type         string `json:"type"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	INN          string `json:"inn"`
	KPP          string `json:"kpp"`
	OGRN         string `json:"ogrn"`
	LegalAddress string `json:"legal_address"`
}

func (s *Server) CreateMerchant(c *gin.Context) {
	var req createMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "user_id is required"))
		return
	}

	resp, err := s.merchantSvc.Create(c.Request.Context(), merchantdomain.CreateMerchantRequest{
		UserID:       strings.TrimSpace(req.UserID),
		Type:         merchantdomain.MerchantType(req.Type),
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		INN:          req.INN,
		KPP:          req.KPP,
		OGRN:         req.OGRN,
		LegalAddress: req.LegalAddress,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMerchant(c *gin.Context) {
	resp, err := s.merchantSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateMerchantRequest struct {
	Type         *string `json:"type"`
	FullName     *string `json:"full_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	INN          *string `json:"inn"`
	KPP          *string `json:"kpp"`
	OGRN         *string `json:"ogrn"`
	LegalAddress *string `json:"legal_address"`
	LogoURL      *string `json:"logo_url"`

	BankName        *string `json:"bank_name"`
	BankBIC         *string `json:"bank_bic"`
	BankAccount     *string `json:"bank_account"`
	BankCorrAccount *string `json:"bank_corr_account"`

	IsActive *bool `json:"is_active"`
}

func (s *Server) UpdateMerchant(c *gin.Context) {
	var req updateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var merchantType *merchantdomain.MerchantType
	if req.Type != nil {
		t := merchantdomain.MerchantType(*req.Type)
		merchantType = &t
	}

	resp, err := s.merchantSvc.Update(c.Request.Context(), merchantdomain.UpdateMerchantRequest{
		Type:            merchantType,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		INN:             req.INN,
		KPP:             req.KPP,
		OGRN:            req.OGRN,
		LegalAddress:    req.LegalAddress,
		LogoURL:         req.LogoURL,
		BankName:        req.BankName,
		BankBIC:         req.BankBIC,
		BankAccount:     req.BankAccount,
		BankCorrAccount: req.BankCorrAccount,
		IsActive:        req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register wires every route onto the engine. Mutating endpoints sit behind
// the admin gate except client creation, which agents may use.
func (h *Handler) Register(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})
	router.GET("/health", h.HealthCheckHandler)

	auth := router.Group("/auth")
	{
		auth.GET("/login", h.LoginPage)
		auth.POST("/login", h.LoginPost)
		auth.GET("/logout", h.Logout)
	}

	router.GET("/dashboard", h.LoginRequired, h.Dashboard)

	bookings := router.Group("/bookings", h.LoginRequired)
	{
		bookings.GET("", h.BookingsIndex)
		bookings.GET("/api/card/:id", h.BookingCardJSON)
		bookings.GET("/api/events", h.BookingEventsJSON)
		bookings.GET("/contract/edit/:id", h.ContractEdit)
		bookings.POST("/contract/save/:id", h.ContractSave)
		bookings.GET("/contract/pdf/:id", h.ContractPDF)

		admin := bookings.Group("", h.AdminRequired)
		{
			admin.POST("/create", h.BookingCreate)
			admin.POST("/update/:id", h.BookingUpdate)
			admin.POST("/move/:id/:action", h.BookingMove)
			admin.POST("/archive/:id", h.BookingArchive)
			admin.POST("/contract_and_move/:id", h.BookingContractAndMove)
		}
	}

	vehicles := router.Group("/vehicles", h.LoginRequired)
	{
		vehicles.GET("", h.VehiclesIndex)
		vehicles.POST("/create", h.AdminRequired, h.VehicleCreate)
	}

	clients := router.Group("/clients", h.LoginRequired)
	{
		clients.GET("", h.ClientsIndex)
		clients.POST("/create", h.ClientCreate)
	}

	finance := router.Group("/finance", h.LoginRequired, h.AdminRequired)
	{
		finance.GET("", h.FinanceIndex)
		finance.POST("/invoice/create", h.InvoiceCreate)
		finance.POST("/expense/create", h.ExpenseCreate)
		finance.GET("/month_report.pdf", h.MonthReportPDF)
	}
}

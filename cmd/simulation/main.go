package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/restock-api/internal/auth"
	"github.com/ksred/restock-api/internal/database"
	"github.com/ksred/restock-api/internal/forecast"
	"github.com/ksred/restock-api/internal/registry"
	"github.com/ksred/restock-api/internal/runner"
	"github.com/ksred/restock-api/internal/suggestion"
	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/internal/workflow"
	"github.com/ksred/restock-api/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minOrders     = 10
	maxOrders     = 60
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
	jwtSecret     = "restock-secret-key"
	scheduleID    = "SCH_sim_replenishment"
)

var (
	stores   = []string{"STORE_001", "STORE_002", "STORE_003"}
	products = []struct {
		ProductID string
		VendorID  string
		UnitCost  float64
	}{
		{"PRD_paper_towels", "VND_acme", 18.50},
		{"PRD_nitrile_gloves", "VND_medline", 42.00},
		{"PRD_floor_cleaner", "VND_chemco", 27.00},
		{"PRD_register_tape", "VND_officemax", 6.10},
		{"PRD_seasonal_displays", "VND_displayco", 112.00},
	}
	rejectionReasons = []types.RejectionReason{
		types.ReasonBudgetExceeded,
		types.ReasonIncorrectItems,
		types.ReasonDuplicateOrder,
		types.ReasonVendorIssue,
		types.ReasonNoLongerNeeded,
	}
	shippingMethods = []string{"GROUND", "FREIGHT", "COURIER"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the replenishment API.
// It holds one JWT per workflow role so it can act as a DM, an FM, or the
// system depending on the call.
type simulationClient struct {
	baseURL string
	tokens  map[types.Role]string
	client  *http.Client

	mu    sync.Mutex
	stats map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates once per role and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		tokens:  make(map[types.Role]string),
		stats: map[string]*routeStats{
			"auth":              {name: "Authentication"},
			"create":            {name: "Create Order"},
			"get":               {name: "Get Order"},
			"approve":           {name: "Approve Order"},
			"reject":            {name: "Reject Order"},
			"dispatch":          {name: "Dispatch Order"},
			"receive":           {name: "Receive Order"},
			"run_schedule":      {name: "Run Schedule"},
			"list_suggestions":  {name: "List Suggestions"},
			"triage_suggestion": {name: "Triage Suggestion"},
			"execution_history": {name: "Execution History"},
		},
	}

	credentials := map[types.Role][2]string{
		types.RoleDM:     {auth.TestDMKey, auth.TestDMSecret},
		types.RoleFM:     {auth.TestFMKey, auth.TestFMSecret},
		types.RoleSystem: {auth.TestSysKey, auth.TestSysSecret},
	}
	for role, creds := range credentials {
		token, err := sc.authenticate(creds[0], creds[1])
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate as %s: %w", role, err)
		}
		sc.tokens[role] = token
	}

	return sc, nil
}

func (sc *simulationClient) record(route string, start time.Time, failed bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	rs := sc.stats[route]
	rs.addDuration(time.Since(start))
	if failed {
		rs.failures++
	}
}

// authenticate exchanges API credentials for a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	start := time.Now()

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		sc.record("auth", start, true)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.record("auth", start, true)
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		sc.record("auth", start, true)
		return "", err
	}

	sc.record("auth", start, false)
	return result.Data.Token, nil
}

// do issues an authenticated request as the given role and decodes the
// response envelope's data field into out (when out is non-nil).
func (sc *simulationClient) do(route, method, path string, role types.Role, payload, out interface{}) error {
	start := time.Now()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			sc.record(route, start, true)
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		sc.record(route, start, true)
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.tokens[role]))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.record(route, start, true)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		sc.record(route, start, true)
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("route", route).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.record(route, start, true)
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		var envelope struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			sc.record(route, start, true)
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			sc.record(route, start, true)
			return fmt.Errorf("failed to decode data: %w, body: %s", err, string(respBody))
		}
	}

	sc.record(route, start, false)
	return nil
}

// createOrder submits a new order as an FM and returns the order ID
func (sc *simulationClient) createOrder(in *workflow.CreateOrderInput) (string, error) {
	var order types.Order
	if err := sc.do("create", "POST", "/api/v1/orders", types.RoleFM, in, &order); err != nil {
		return "", err
	}
	if order.OrderID == "" {
		return "", fmt.Errorf("no order ID in response")
	}
	return order.OrderID, nil
}

// getOrder retrieves the current state of an order
func (sc *simulationClient) getOrder(orderID string) (*types.Order, error) {
	var order types.Order
	if err := sc.do("get", "GET", fmt.Sprintf("/api/v1/orders/%s", orderID), types.RoleFM, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// approveOrder advances an order one approval step as the given role
func (sc *simulationClient) approveOrder(orderID string, role types.Role) (*types.Order, error) {
	var order types.Order
	if err := sc.do("approve", "POST", fmt.Sprintf("/api/v1/orders/%s/approve", orderID), role, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// rejectOrder terminates a pending order with a reason code
func (sc *simulationClient) rejectOrder(orderID string, role types.Role, reason types.RejectionReason) error {
	payload := map[string]string{
		"reason_code": string(reason),
		"comments":    "simulated rejection",
	}
	return sc.do("reject", "POST", fmt.Sprintf("/api/v1/orders/%s/reject", orderID), role, payload, nil)
}

// dispatchOrder hands an approved order to the carrier
func (sc *simulationClient) dispatchOrder(orderID, method string) error {
	payload := map[string]string{"method": method}
	return sc.do("dispatch", "POST", fmt.Sprintf("/api/v1/orders/%s/dispatch", orderID), types.RoleSystem, payload, nil)
}

// receiveOrder records a partial or full receipt
func (sc *simulationClient) receiveOrder(orderID string, partial bool) error {
	payload := map[string]bool{"partial": partial}
	return sc.do("receive", "POST", fmt.Sprintf("/api/v1/orders/%s/receive", orderID), types.RoleFM, payload, nil)
}

// runSchedule triggers an on-demand replenishment analysis
func (sc *simulationClient) runSchedule(scheduleID string) (*types.ScheduleExecutionLog, error) {
	var execLog types.ScheduleExecutionLog
	path := fmt.Sprintf("/api/v1/internal/schedules/%s/run", scheduleID)
	if err := sc.do("run_schedule", "POST", path, types.RoleSystem, nil, &execLog); err != nil {
		return nil, err
	}
	return &execLog, nil
}

// listSuggestions fetches the pending suggestion set
func (sc *simulationClient) listSuggestions() ([]types.ReplenishmentSuggestion, error) {
	var suggestions []types.ReplenishmentSuggestion
	if err := sc.do("list_suggestions", "GET", "/api/v1/suggestions", types.RoleFM, nil, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// approveSuggestion converts a pending suggestion into an order
func (sc *simulationClient) approveSuggestion(suggestionID string) (*types.Order, error) {
	var order types.Order
	path := fmt.Sprintf("/api/v1/suggestions/%s/approve", suggestionID)
	if err := sc.do("triage_suggestion", "POST", path, types.RoleFM, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// rejectSuggestion drops a pending suggestion
func (sc *simulationClient) rejectSuggestion(suggestionID string) error {
	payload := map[string]string{"reason": "forecast not trusted"}
	path := fmt.Sprintf("/api/v1/suggestions/%s/reject", suggestionID)
	return sc.do("triage_suggestion", "POST", path, types.RoleFM, payload, nil)
}

// executionHistory fetches recent runs for a schedule
func (sc *simulationClient) executionHistory(scheduleID string) ([]types.ScheduleExecutionLog, error) {
	var history []types.ScheduleExecutionLog
	path := fmt.Sprintf("/api/v1/schedules/%s/history", scheduleID)
	if err := sc.do("execution_history", "GET", path, types.RoleFM, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 110))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 110))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 110))
}

// main runs the replenishment simulation
// It starts a local API server, drives manual orders through the approval
// workflow, then triggers a schedule run and triages the suggestions
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// Initialize simulation client
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	// Generate random number of orders to process
	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	// Channel to collect order IDs
	ordersChan := make(chan string, targetOrders)
	var wg sync.WaitGroup

	// Start worker goroutines
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			createOrdersHTTP(workerID, targetOrders/numWorkers, simClient, ordersChan)
		}(i)
	}

	// Wait for all orders to be created
	wg.Wait()
	close(ordersChan)

	// Collect all order IDs
	var orderIDs []string
	for orderID := range ordersChan {
		orderIDs = append(orderIDs, orderID)
	}

	log.Info().Int("orders_created", len(orderIDs)).Msg("All orders created")

	// Collect statistics during processing
	stats := struct {
		TotalOrders          int
		ApprovedOrders       int
		RejectedOrders       int
		DeliveredOrders      int
		FailedTransitions    int
		SuggestionsGenerated int
		AutoApproved         int
		SuggestionsApproved  int
		SuggestionsRejected  int
		TotalValue           float64
		StartTime            time.Time
		Stores               map[string]int
	}{
		StartTime: time.Now(),
		Stores:    make(map[string]int),
	}
	stats.TotalOrders = len(orderIDs)

	// Drive each order through the approval workflow
	var approvedIDs []string
	for _, orderID := range orderIDs {
		order, err := simClient.getOrder(orderID)
		if err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("Failed to fetch order")
			stats.FailedTransitions++
			continue
		}
		stats.Stores[order.StoreID]++

		// Roughly one in six pending orders gets rejected
		if rand.Intn(6) == 0 {
			role := types.RoleFM
			if order.Status == types.StatusPendingDMApproval {
				role = types.RoleDM
			}
			reason := rejectionReasons[rand.Intn(len(rejectionReasons))]
			if err := simClient.rejectOrder(orderID, role, reason); err != nil {
				log.Error().Err(err).Str("order_id", orderID).Msg("Failed to reject order")
				stats.FailedTransitions++
				continue
			}
			stats.RejectedOrders++
			log.Info().
				Str("order_id", orderID).
				Str("reason_code", string(reason)).
				Msg("Order rejected")
			continue
		}

		if order.Status == types.StatusPendingDMApproval {
			if order, err = simClient.approveOrder(orderID, types.RoleDM); err != nil {
				log.Error().Err(err).Str("order_id", orderID).Msg("DM approval failed")
				stats.FailedTransitions++
				continue
			}
		}
		if order.Status == types.StatusPendingFMApproval {
			if order, err = simClient.approveOrder(orderID, types.RoleFM); err != nil {
				log.Error().Err(err).Str("order_id", orderID).Msg("FM approval failed")
				stats.FailedTransitions++
				continue
			}
		}

		stats.ApprovedOrders++
		stats.TotalValue += order.TotalCost
		approvedIDs = append(approvedIDs, orderID)
		log.Info().
			Str("order_id", orderID).
			Str("status", string(order.Status)).
			Float64("total_cost", order.TotalCost).
			Msg("Order approved for fulfillment")
	}

	// Fulfill approved orders: dispatch, then receive (sometimes partially)
	for _, orderID := range approvedIDs {
		method := shippingMethods[rand.Intn(len(shippingMethods))]
		if err := simClient.dispatchOrder(orderID, method); err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("Failed to dispatch order")
			stats.FailedTransitions++
			continue
		}

		if rand.Intn(4) == 0 {
			if err := simClient.receiveOrder(orderID, true); err != nil {
				log.Error().Err(err).Str("order_id", orderID).Msg("Failed to record partial receipt")
				stats.FailedTransitions++
				continue
			}
		}
		if err := simClient.receiveOrder(orderID, false); err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("Failed to record full receipt")
			stats.FailedTransitions++
			continue
		}
		stats.DeliveredOrders++
		log.Info().Str("order_id", orderID).Str("method", method).Msg("Order delivered")
	}

	// Trigger a replenishment analysis and triage the resulting suggestions
	execLog, err := simClient.runSchedule(scheduleID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to run schedule")
	} else {
		stats.SuggestionsGenerated = execLog.SuggestionsGenerated
		stats.AutoApproved = execLog.AutoApproved
		log.Info().
			Str("execution_id", execLog.ExecutionID).
			Str("status", string(execLog.Status)).
			Int("suggestions_generated", execLog.SuggestionsGenerated).
			Int("auto_approved", execLog.AutoApproved).
			Int("pending_review", execLog.PendingReview).
			Msg("Schedule executed")
	}

	suggestions, err := simClient.listSuggestions()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list suggestions")
	}
	for _, sg := range suggestions {
		// Two in three pending suggestions get approved
		if rand.Intn(3) < 2 {
			order, err := simClient.approveSuggestion(sg.SuggestionID)
			if err != nil {
				log.Error().Err(err).Str("suggestion_id", sg.SuggestionID).Msg("Failed to approve suggestion")
				continue
			}
			stats.SuggestionsApproved++
			stats.TotalValue += order.TotalCost
			log.Info().
				Str("suggestion_id", sg.SuggestionID).
				Str("order_id", order.OrderID).
				Str("status", string(order.Status)).
				Msg("Suggestion approved")
		} else {
			if err := simClient.rejectSuggestion(sg.SuggestionID); err != nil {
				log.Error().Err(err).Str("suggestion_id", sg.SuggestionID).Msg("Failed to reject suggestion")
				continue
			}
			stats.SuggestionsRejected++
			log.Info().Str("suggestion_id", sg.SuggestionID).Msg("Suggestion rejected")
		}
	}

	if history, err := simClient.executionHistory(scheduleID); err == nil {
		log.Info().Int("executions", len(history)).Msg("Execution history fetched")
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🛒 REPLENISHMENT SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
📊 Order Statistics
------------------
Total Orders:          %d
Approved:              %d
Rejected:              %d
Delivered:             %d
Failed Transitions:    %d
Suggestions Generated: %d
Auto-Approved:         %d
Suggestions Approved:  %d
Suggestions Rejected:  %d
Total Value:           $%.2f
Duration:              %v

🏬 Store Distribution
--------------------
`, stats.TotalOrders, stats.ApprovedOrders, stats.RejectedOrders, stats.DeliveredOrders,
		stats.FailedTransitions, stats.SuggestionsGenerated, stats.AutoApproved,
		stats.SuggestionsApproved, stats.SuggestionsRejected,
		stats.TotalValue, duration.Round(time.Millisecond))

	// Print store distribution with simple ASCII bar chart
	maxStoreCount := 0
	for _, count := range stats.Stores {
		if count > maxStoreCount {
			maxStoreCount = count
		}
	}

	for store, count := range stats.Stores {
		barLength := int(float64(count) / float64(maxStoreCount) * 20)
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-10s: %s (%d)\n", store, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	// Success rate calculation
	successRate := float64(stats.DeliveredOrders) / float64(stats.TotalOrders) * 100
	log.Info().
		Float64("delivery_rate", successRate).
		Int("total_orders", stats.TotalOrders).
		Int("delivered", stats.DeliveredOrders).
		Float64("total_value", stats.TotalValue).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// createOrdersHTTP generates and submits random orders to the API
// Runs as a worker goroutine, sending created order IDs to ordersChan
func createOrdersHTTP(workerID, numOrders int, simClient *simulationClient, ordersChan chan<- string) {
	for i := 0; i < numOrders; i++ {
		product := products[rand.Intn(len(products))]
		in := &workflow.CreateOrderInput{
			StoreID: stores[rand.Intn(len(stores))],
			LineItems: []types.LineItem{{
				ProductID: product.ProductID,
				VendorID:  product.VendorID,
				Quantity:  rand.Intn(40) + 1,
				UnitCost:  product.UnitCost,
				// Roughly a quarter of manual orders need district sign-off
				RequiresDMApproval: rand.Intn(4) == 0,
			}},
		}

		orderID, err := simClient.createOrder(in)
		if err != nil {
			log.Error().Err(err).
				Int("worker_id", workerID).
				Str("product_id", product.ProductID).
				Msg("Failed to create order")
			continue
		}

		ordersChan <- orderID
		log.Info().
			Int("worker_id", workerID).
			Str("order_id", orderID).
			Str("store_id", in.StoreID).
			Str("product_id", product.ProductID).
			Int("quantity", in.LineItems[0].Quantity).
			Msg("Order created")

		// Random sleep between orders
		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
}

// startServer initializes and starts the replenishment API server
// Sets up all required services, handlers and routes
func startServer() error {
	// Initialize database
	db, err := database.NewTestDatabase()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	authService := auth.NewService(jwtSecret)
	authService.RegisterAPICredentials(auth.TestDMKey, auth.TestDMSecret, types.RoleDM)
	authService.RegisterAPICredentials(auth.TestFMKey, auth.TestFMSecret, types.RoleFM)
	authService.RegisterAPICredentials(auth.TestSysKey, auth.TestSysSecret, types.RoleSystem)

	workflowService := workflow.NewService(db)
	registryService, err := registry.NewServiceWithSeed(db, []types.ScheduleConfig{{
		ScheduleID: scheduleID,
		Name:       "Simulation replenishment analysis",
		Enabled:    true,
		Frequency:  types.FrequencyDaily,
		TimeOfDay:  "06:00",
		Thresholds: types.ConfidenceThresholds{
			FMReviewThreshold:       0.60,
			HighConfidenceThreshold: 0.80,
			AutoApproveThreshold:    0.90,
		},
		Approval: types.ApprovalWorkflow{
			AutoApproveEnabled:     true,
			MaxAutoApproveAmount:   500,
			RequireDMApprovalAbove: 2000,
		},
		VendorPrefs: types.VendorPreferences{
			PreferPrimaryVendors:    true,
			AllowVendorSubstitution: true,
		},
	}})
	if err != nil {
		return fmt.Errorf("failed to seed schedule registry: %w", err)
	}
	suggestionService := suggestion.NewService(db, registryService)
	scheduleRunner := runner.NewRunner(registryService, suggestionService, forecast.NewMockOracle(), time.Minute)

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	workflowHandlers := workflow.NewGinHandlers(workflowService)
	registryHandlers := registry.NewGinHandlers(registryService)
	suggestionHandlers := suggestion.NewGinHandlers(suggestionService)
	runnerHandlers := runner.NewGinHandlers(scheduleRunner)

	// Setup routes
	setupRoutes(router, authHandlers, workflowHandlers, suggestionHandlers, registryHandlers, runnerHandlers)

	// Start the server
	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	workflowHandlers *workflow.GinHandlers,
	suggestionHandlers *suggestion.GinHandlers,
	registryHandlers *registry.GinHandlers,
	runnerHandlers *runner.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Order workflow routes
		orders := v1.Group("/orders")
		orders.Use(middleware.JWTAuth(jwtSecret))
		{
			orders.POST("", workflowHandlers.CreateOrderHandler())
			orders.GET("/:order_id", workflowHandlers.GetOrderHandler())
			orders.GET("/:order_id/audit", workflowHandlers.AuditHistoryHandler())
			orders.POST("/:order_id/approve", workflowHandlers.ApproveOrderHandler())
			orders.POST("/:order_id/reject", workflowHandlers.RejectOrderHandler())
			orders.POST("/:order_id/dispatch", workflowHandlers.DispatchOrderHandler())
			orders.POST("/:order_id/receive", workflowHandlers.ReceiveOrderHandler())
		}

		// Suggestion triage routes
		suggestions := v1.Group("/suggestions")
		suggestions.Use(middleware.JWTAuth(jwtSecret))
		{
			suggestions.GET("", suggestionHandlers.ListPendingHandler())
			suggestions.POST("/:suggestion_id/approve", suggestionHandlers.ApproveSuggestionHandler())
			suggestions.POST("/:suggestion_id/reject", suggestionHandlers.RejectSuggestionHandler())
		}

		// Schedule registry routes
		schedules := v1.Group("/schedules")
		schedules.Use(middleware.JWTAuth(jwtSecret))
		{
			schedules.GET("/:schedule_id/history", registryHandlers.ExecutionHistoryHandler())
		}

		// Internal routes
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/schedules/:schedule_id/run", runnerHandlers.RunScheduleHandler())
		}
	}
}

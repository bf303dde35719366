// XScan Alert Receiver Example
//
// A minimal endpoint that receives and verifies XScan donation alerts.
//
// Usage:
//   export XSCAN_WEBHOOK_SECRET="whsec_your_secret_here"
//   go run main.go
//
// Then set the webhook URL in your OBS settings to http://your-server:9000/alerts

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

const replayWindow = 5 * time.Minute

// DonationAlert is the body of a donation.received alert.
type DonationAlert struct {
	Event      string    `json:"event"`
	DeliveryID string    `json:"delivery_id"`
	DonationID string    `json:"donation_id"`
	DonorName  string    `json:"donor_name"`
	Message    string    `json:"message,omitempty"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	AlertText  string    `json:"alert_text"`
	CreatedAt  time.Time `json:"created_at"`
}

func main() {
	secret := os.Getenv("XSCAN_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("XSCAN_WEBHOOK_SECRET environment variable is required")
	}

	seen := make(map[string]bool)

	http.HandleFunc("/alerts", alertHandler(secret, seen))
	http.HandleFunc("/health", healthHandler)

	log.Println("Starting alert receiver on :9000")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func alertHandler(secret string, seen map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if !verify(secret, r.Header.Get("X-XScan-Signature"), r.Header.Get("X-XScan-Timestamp"), body) {
			log.Println("Rejected alert: bad or stale signature")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		// Retries reuse the delivery id.
		deliveryID := r.Header.Get("X-XScan-Delivery-Id")
		if seen[deliveryID] {
			w.WriteHeader(http.StatusOK)
			return
		}
		seen[deliveryID] = true

		var alert DonationAlert
		if err := json.Unmarshal(body, &alert); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		log.Printf("%s (%d %s) %s", alert.AlertText, alert.Amount, alert.Currency, alert.Message)

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "received"})
	}
}

// verify checks the hex HMAC-SHA256 of "{timestamp}.{body}" and the
// timestamp's distance from now.
func verify(secret, signature, timestamp string, body []byte) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil || signature == "" {
		return false
	}
	age := time.Since(time.Unix(ts, 0))
	if age > replayWindow || age < -replayWindow {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

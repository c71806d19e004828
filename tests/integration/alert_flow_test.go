package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAlertFlow_TriggerAndReset(t *testing.T) {
	app := setupApp(t, map[string]string{"AAPL": "150"})
	token, _, _ := app.registerUser(t, "alerts@test.com", "password123")
	assetID := app.createAsset(t, token, "AAPL")

	// Step 1: One alert that should fire and one that should not
	createAlert := func(condition, target string) string {
		body := fmt.Sprintf(`{"asset_id":%q,"condition_type":%q,"target_price":%q,"currency":"USD"}`, assetID, condition, target)
		rec := app.request("POST", "/api/v1/alerts", body, token)
		expectStatus(t, rec, http.StatusCreated)
		return field(t, parseJSON(t, rec), "alert")["id"].(string)
	}
	fires := createAlert("ABOVE", "140")
	quiet := createAlert("BELOW", "100")

	// Step 2: Pipeline check evaluates both against the current price
	rec := app.pipelineRequest("POST", "/pipeline/alerts/check")
	expectStatus(t, rec, http.StatusOK)
	result := parseJSON(t, rec)
	if result["checked"].(float64) != 2 || result["triggered"].(float64) != 1 {
		t.Errorf("expected 2 checked and 1 triggered, got %v", result)
	}

	// Step 3: Only the fired alert is listed as triggered
	rec = app.request("GET", "/api/v1/alerts?triggered=true", "", token)
	expectStatus(t, rec, http.StatusOK)
	triggered := parseJSON(t, rec)["alerts"].([]interface{})
	if len(triggered) != 1 || triggered[0].(map[string]interface{})["id"] != fires {
		t.Fatalf("expected only %s triggered, got %v", fires, triggered)
	}

	rec = app.request("GET", "/api/v1/alerts/"+quiet, "", token)
	expectStatus(t, rec, http.StatusOK)
	if field(t, parseJSON(t, rec), "alert")["is_active"] != true {
		t.Error("expected the untriggered alert to stay active")
	}

	// Step 4: Reset re-arms the fired alert
	rec = app.request("POST", fmt.Sprintf("/api/v1/alerts/%s/reset", fires), "", token)
	expectStatus(t, rec, http.StatusOK)
	alert := field(t, parseJSON(t, rec), "alert")
	if alert["is_active"] != true || alert["triggered_at"] != nil {
		t.Errorf("expected a re-armed alert, got %v", alert)
	}
}

func TestAlertFlow_BulkIsAllOrNothing(t *testing.T) {
	app := setupApp(t, nil)
	token, _, _ := app.registerUser(t, "bulk@test.com", "password123")
	assetID := app.createAsset(t, token, "AAPL")

	body := fmt.Sprintf(`{"alerts":[
		{"asset_id":%q,"condition_type":"ABOVE","target_price":"200","currency":"USD"},
		{"asset_id":%q,"condition_type":"BELOW","target_price":"-5","currency":"USD"}
	]}`, assetID, assetID)
	rec := app.request("POST", "/api/v1/alerts/bulk", body, token)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = app.request("GET", "/api/v1/alerts", "", token)
	expectStatus(t, rec, http.StatusOK)
	if n := len(parseJSON(t, rec)["alerts"].([]interface{})); n != 0 {
		t.Errorf("expected no alerts after a rejected batch, got %d", n)
	}
}

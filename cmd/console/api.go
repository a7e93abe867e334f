package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

type ErrorResponse struct {
	Code      string         `json:"error_code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Detail    map[string]any `json:"detail,omitempty"`
}

type CaseSummary struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	TimeWindow string `json:"time_window"`
	Summary    string `json:"summary"`
	VictimName string `json:"victim_name"`
	FoundState string `json:"found_state"`
}

type Character struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Traits []string `json:"traits"`
}

type EvidenceItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Detail    string `json:"detail"`
	Relevance string `json:"relevance"`
}

type NewGameResponse struct {
	GameID             string      `json:"game_id"`
	CaseSummary        CaseSummary `json:"case_summary"`
	Characters         []Character `json:"characters"`
	InitialState       string      `json:"initial_state"`
	RemainingQuestions int         `json:"remaining_questions"`
	Language           string      `json:"language_mode"`
}

type AskResponse struct {
	AnswerText         string        `json:"answer_text"`
	FollowUpQuestions  []string      `json:"follow_up_questions"`
	RemainingQuestions int           `json:"remaining_questions"`
	Status             string        `json:"status"`
	UnlockedEvidence   *EvidenceItem `json:"unlocked_evidence"`
}

type MessageView struct {
	Question          string   `json:"question"`
	AnswerText        string   `json:"answer_text"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

type GameStateResponse struct {
	GameID             string         `json:"game_id"`
	Status             string         `json:"status"`
	RemainingQuestions int            `json:"remaining_questions"`
	Language           string         `json:"language_mode"`
	CaseSummary        CaseSummary    `json:"case_summary"`
	Characters         []Character    `json:"characters"`
	UnlockedEvidence   []EvidenceItem `json:"unlocked_evidence"`
	Messages           []MessageView  `json:"messages"`
}

type GuessRequest struct {
	Killer    string `json:"killer"`
	Motive    string `json:"motive"`
	Method    string `json:"method"`
	Trick     string `json:"trick"`
	Reasoning string `json:"reasoning"`
}

type GuessResponse struct {
	Score           int      `json:"score"`
	Grade           string   `json:"grade"`
	Feedback        string   `json:"feedback"`
	Contradictions  []string `json:"contradictions"`
	WeaknessesTop3  []string `json:"weaknesses_top3"`
	SolutionSummary string   `json:"solution_summary"`
}

type SummaryResponse struct {
	Killer     string   `json:"killer"`
	Method     string   `json:"method"`
	Motive     string   `json:"motive"`
	Trick      string   `json:"trick"`
	Highlights []string `json:"highlights"`
}

func decodeError(statusCode int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		return fmt.Errorf("API returned status %d: %s", statusCode, string(body))
	}
	return fmt.Errorf("%s", errResp.Message)
}

func doJSON(client *http.Client, method, url string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func createGame(client *http.Client, baseURL, language string) (*NewGameResponse, error) {
	var out NewGameResponse
	err := doJSON(client, http.MethodPost, baseURL+"/api/game/new",
		map[string]string{"language_mode": language}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func getGame(client *http.Client, baseURL, gameID string) (*GameStateResponse, error) {
	var out GameStateResponse
	if err := doJSON(client, http.MethodGet, fmt.Sprintf("%s/api/game/%s", baseURL, gameID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func askQuestion(client *http.Client, baseURL, gameID, question string) (*AskResponse, error) {
	var out AskResponse
	err := doJSON(client, http.MethodPost, fmt.Sprintf("%s/api/game/%s/ask", baseURL, gameID),
		map[string]string{"question": question}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func submitGuess(client *http.Client, baseURL, gameID string, guess GuessRequest) (*GuessResponse, error) {
	var out GuessResponse
	err := doJSON(client, http.MethodPost, fmt.Sprintf("%s/api/game/%s/guess", baseURL, gameID), guess, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func summarizeGame(client *http.Client, baseURL, gameID string) (*SummaryResponse, error) {
	var out SummaryResponse
	err := doJSON(client, http.MethodPost, fmt.Sprintf("%s/api/game/%s/summarize", baseURL, gameID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func readyToGuess(client *http.Client, baseURL, gameID string) error {
	return doJSON(client, http.MethodPost, fmt.Sprintf("%s/api/game/%s/ready-to-guess", baseURL, gameID), nil, nil)
}

func endGame(client *http.Client, baseURL, gameID string) error {
	return doJSON(client, http.MethodPost, fmt.Sprintf("%s/api/game/%s/end", baseURL, gameID), nil, nil)
}

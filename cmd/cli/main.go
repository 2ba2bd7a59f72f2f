package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "user":
		handleUser(args)
	case "franchise":
		handleFranchise(args)
	case "store":
		handleStore(args)
	case "menu":
		handleMenu(args)
	case "order":
		handleOrder(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orderdesk auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orderdesk user <list|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listUsers(args[1:])
	case "delete":
		deleteUser(args[1:])
	default:
		fmt.Printf("unknown user command: %s\n", subCmd)
	}
}

func handleFranchise(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orderdesk franchise <list|create|delete|mine>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listFranchises(args[1:])
	case "create":
		createFranchise(args[1:])
	case "delete":
		deleteFranchise(args[1:])
	case "mine":
		myFranchises(args[1:])
	default:
		fmt.Printf("unknown franchise command: %s\n", subCmd)
	}
}

func handleStore(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orderdesk store <create|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "create":
		createStore(args[1:])
	case "delete":
		deleteStore(args[1:])
	default:
		fmt.Printf("unknown store command: %s\n", subCmd)
	}
}

func handleMenu(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orderdesk menu <list|add>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listMenu()
	case "add":
		addMenuItem(args[1:])
	default:
		fmt.Printf("unknown menu command: %s\n", subCmd)
	}
}

func handleOrder(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orderdesk order <list>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listOrders(args[1:])
	default:
		fmt.Printf("unknown order command: %s\n", subCmd)
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *name == "" || *email == "" || *password == "" {
		fmt.Println("Error: name, email, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"name": *name, "email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Registered: %s\n", *email)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPut, getAPIURL()+"/auth", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	req, _ := http.NewRequest(http.MethodDelete, getAPIURL()+"/auth", nil)
	addAuthHeader(req)
	if resp, err := http.DefaultClient.Do(req); err == nil {
		resp.Body.Close()
	}
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	req, _ := http.NewRequest(http.MethodGet, getAPIURL()+"/user/me", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Println("Not logged in")
		return
	}

	var user map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&user)
	fmt.Printf("✓ Logged in as: %v <%v>\n", user["name"], user["email"])
}

// User commands
func listUsers(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 0, "page number")
	name := fs.String("name", "", "name glob filter, * matches any substring")
	fs.Parse(args)

	url := fmt.Sprintf("%s/user?page=%d", getAPIURL(), *page)
	if *name != "" {
		url += "&name=" + *name
	}

	var result struct {
		Users []map[string]interface{} `json:"users"`
		More  bool                     `json:"more"`
	}
	if !getJSON(url, &result) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL")
	for _, u := range result.Users {
		fmt.Fprintf(w, "%v\t%v\t%v\n", u["id"], u["name"], u["email"])
	}
	w.Flush()
	if result.More {
		fmt.Printf("more results: -page %d\n", *page+1)
	}
}

func deleteUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orderdesk user delete <user-id>")
		return
	}

	req, _ := http.NewRequest(http.MethodDelete, getAPIURL()+"/user/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Println("✓ User deleted")
	} else {
		fmt.Printf("✗ Delete failed (%d)\n", resp.StatusCode)
	}
}

// Franchise commands
func listFranchises(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 0, "page number")
	name := fs.String("name", "", "name filter")
	fs.Parse(args)

	url := fmt.Sprintf("%s/franchise?page=%d", getAPIURL(), *page)
	if *name != "" {
		url += "&name=" + *name
	}

	var result struct {
		Franchises []map[string]interface{} `json:"franchises"`
		More       bool                     `json:"more"`
	}
	if !getJSON(url, &result) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTORES")
	for _, f := range result.Franchises {
		stores, _ := f["stores"].([]interface{})
		fmt.Fprintf(w, "%v\t%v\t%d\n", f["id"], f["name"], len(stores))
	}
	w.Flush()
	if result.More {
		fmt.Printf("more results: -page %d\n", *page+1)
	}
}

func createFranchise(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "franchise name")
	admins := fs.String("admins", "", "comma-separated admin emails")
	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	type adminRef struct {
		Email string `json:"email"`
	}
	payload := struct {
		Name   string     `json:"name"`
		Admins []adminRef `json:"admins"`
	}{Name: *name}
	for _, email := range strings.Split(*admins, ",") {
		if email = strings.TrimSpace(email); email != "" {
			payload.Admins = append(payload.Admins, adminRef{Email: email})
		}
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, getAPIURL()+"/franchise", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Franchise created: %v\n", result["id"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func deleteFranchise(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orderdesk franchise delete <franchise-id>")
		return
	}

	req, _ := http.NewRequest(http.MethodDelete, getAPIURL()+"/franchise/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Println("✓ Franchise deleted")
	} else {
		fmt.Printf("✗ Delete failed (%d)\n", resp.StatusCode)
	}
}

func myFranchises(args []string) {
	_ = args
	req, _ := http.NewRequest(http.MethodGet, getAPIURL()+"/user/me", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	var user map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&user)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		fmt.Println("Not logged in")
		return
	}

	var franchises []map[string]interface{}
	if !getJSON(fmt.Sprintf("%s/franchise/%v", getAPIURL(), user["id"]), &franchises) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTORES")
	for _, f := range franchises {
		stores, _ := f["stores"].([]interface{})
		fmt.Fprintf(w, "%v\t%v\t%d\n", f["id"], f["name"], len(stores))
	}
	w.Flush()
}

// Store commands
func createStore(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	franchiseID := fs.String("franchise", "", "franchise ID")
	name := fs.String("name", "", "store name")
	fs.Parse(args)

	if *franchiseID == "" || *name == "" {
		fmt.Println("Error: franchise and name are required")
		fs.PrintDefaults()
		return
	}

	data, _ := json.Marshal(map[string]string{"name": *name})
	req, _ := http.NewRequest(http.MethodPost, getAPIURL()+"/franchise/"+*franchiseID+"/store", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Store created: %v\n", result["id"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func deleteStore(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	franchiseID := fs.String("franchise", "", "franchise ID")
	storeID := fs.String("store", "", "store ID")
	fs.Parse(args)

	if *franchiseID == "" || *storeID == "" {
		fmt.Println("Error: franchise and store are required")
		fs.PrintDefaults()
		return
	}

	req, _ := http.NewRequest(http.MethodDelete, getAPIURL()+"/franchise/"+*franchiseID+"/store/"+*storeID, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Println("✓ Store deleted")
	} else {
		fmt.Printf("✗ Delete failed (%d)\n", resp.StatusCode)
	}
}

// Menu commands
func listMenu() {
	var menu []map[string]interface{}
	if !getJSON(getAPIURL()+"/order/menu", &menu) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tDESCRIPTION")
	for _, m := range menu {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", m["id"], m["title"], m["price"], m["description"])
	}
	w.Flush()
}

func addMenuItem(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	title := fs.String("title", "", "item title")
	description := fs.String("description", "", "item description")
	image := fs.String("image", "", "item image name")
	price := fs.String("price", "", "item price")
	fs.Parse(args)

	if *title == "" || *price == "" {
		fmt.Println("Error: title and price are required")
		fs.PrintDefaults()
		return
	}

	priceVal, err := strconv.ParseFloat(*price, 64)
	if err != nil {
		fmt.Println("Error: price must be a number")
		return
	}

	payload := map[string]interface{}{
		"title":       *title,
		"description": *description,
		"image":       *image,
		"price":       priceVal,
	}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPut, getAPIURL()+"/order/menu", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Menu item added: %s\n", *title)
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Add failed: %v\n", result)
	}
}

// Order commands
func listOrders(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 0, "page number")
	fs.Parse(args)

	var result struct {
		DinerID string                   `json:"dinerId"`
		Orders  []map[string]interface{} `json:"orders"`
		Page    int                      `json:"page"`
	}
	if !getJSON(fmt.Sprintf("%s/order?page=%d", getAPIURL(), *page), &result) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFRANCHISE\tSTORE\tITEMS\tDATE")
	for _, o := range result.Orders {
		items, _ := o["items"].([]interface{})
		fmt.Fprintf(w, "%v\t%v\t%v\t%d\t%v\n", o["id"], o["franchiseId"], o["storeId"], len(items), o["date"])
	}
	w.Flush()
}

// Helper functions
func getJSON(url string, out interface{}) bool {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Request failed (%d): %v\n", resp.StatusCode, result["message"])
		return false
	}

	json.NewDecoder(resp.Body).Decode(out)
	return true
}

func getAPIURL() string {
	if url := os.Getenv("ORDERDESK_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.orderdesk/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.orderdesk", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`OrderDesk CLI

Usage:
  orderdesk <command> [options]

Commands:
  auth       User authentication (register, login, logout, who)
  user       User administration (list, delete) - admin access required
  franchise  Franchise operations (list, create, delete, mine)
  store      Store operations (create, delete)
  menu       Menu catalog (list, add)
  order      Order history (list)
  help       Show this help message

Environment Variables:
  ORDERDESK_API    API endpoint (default: http://localhost:8080/api)

Examples:
  orderdesk auth register -name "Ada Diner" -email ada@example.com -password secret
  orderdesk auth login -email ada@example.com -password secret
  orderdesk franchise create -name PizzaPlanet -admins frank@example.com
  orderdesk store create -franchise <id> -name Downtown
  orderdesk menu list
`)
}

package main

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	if w == nil {
		return
	}
	fmt.Fprintln(w, "Usage")
	fmt.Fprintln(w, "  portalguard [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags")
	fmt.Fprintln(w, "  config string config file path")
	fmt.Fprintln(w, "  listen_addr string http listen address")
	fmt.Fprintln(w, "  enable_admin_auth bool enable admin auth")
	fmt.Fprintln(w, "  admin_token string admin token")
	fmt.Fprintln(w, "  general_limit int general request cap per window")
	fmt.Fprintln(w, "  general_window_s int general window seconds")
	fmt.Fprintln(w, "  auth_limit int auth request cap per window")
	fmt.Fprintln(w, "  auth_window_s int auth window seconds")
	fmt.Fprintln(w, "  burst_threshold int burst threshold")
	fmt.Fprintln(w, "  burst_window_s int burst window seconds")
	fmt.Fprintln(w, "  login_max_attempts int failed logins before lockout")
	fmt.Fprintln(w, "  lockout_minutes int lockout duration minutes")
	fmt.Fprintln(w, "  block_minutes int block duration minutes")
	fmt.Fprintln(w, "  sweep_interval_s int sweep interval seconds")
}

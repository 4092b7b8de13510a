package main

import (
	"fmt"
	"time"

	manager "github.com/RomanDevelop/alien-manager"
	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/schedule"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printStatus(m *manager.Manager, s *common.PresaleStatus) {
	days, hours := schedule.TimeLeft(s.CurrentTime, s.EndTime)
	fmt.Printf("Presale:          %s\n", s.Address.Hex())
	fmt.Printf("Explorer:         %s\n", m.AddressURL(s.Address))
	fmt.Printf("Phase:            %s\n", s.Phase)
	fmt.Printf("Block time:       %s\n", s.CurrentTime.Format(timeLayout))
	fmt.Printf("Start:            %s\n", s.StartTime.UTC().Format(timeLayout))
	fmt.Printf("End:              %s\n", s.EndTime.UTC().Format(timeLayout))
	fmt.Printf("Time left:        %dd %dh\n", days, hours)
	fmt.Printf("Raised:           %s / %s %s (%.2f%%)\n",
		common.FormatEther(s.TotalRaised), common.FormatEther(s.HardCap), common.NativeSymbol, s.ProgressPercent)
	fmt.Printf("Remaining cap:    %s %s\n", common.FormatEther(s.RemainingCap), common.NativeSymbol)
	fmt.Printf("Token price:      %s %s\n", common.FormatEther(s.TokenPrice), common.NativeSymbol)
	fmt.Printf("Paused:           %s\n", yesNo(s.IsPaused))
	fmt.Printf("Hard cap reached: %s\n", yesNo(s.HardCapReached))
}

func printTx(m *manager.Manager, action string, res *common.TxResult) {
	if res == nil {
		return
	}
	fmt.Printf("%s: tx %s\n", action, m.TxURL(res.Hash))
	fmt.Printf("  block %d, gas used %d, success %s\n", res.BlockNumber, res.GasUsed, yesNo(res.Success))
}

func printActions(actions []common.Action) {
	if len(actions) == 0 {
		fmt.Println("No actions recorded")
		return
	}
	for _, a := range actions {
		line := fmt.Sprintf("%s  %-20s %-7s", a.Time.Format("2006-01-02 15:04:05"), a.Action, a.Status)
		if a.Amount != "" {
			line += " amount=" + a.Amount
		}
		if a.TxHash != "" {
			line += " tx=" + a.TxHash
		}
		if a.Address != "" {
			line += " address=" + a.Address
		}
		fmt.Println(line)
	}
}

func printStats(stats common.Statistics) {
	fmt.Printf("Total actions: %d\n", stats.TotalActions)
	if stats.TotalActions == 0 {
		return
	}
	fmt.Printf("Success rate:  %.1f%%\n", stats.SuccessRate)
	fmt.Printf("Last action:   %s at %s\n", stats.LastAction, stats.LastTimestamp.Format(time.RFC3339))
	for action, n := range stats.ActionsByType {
		fmt.Printf("  %-20s %d\n", action, n)
	}
}

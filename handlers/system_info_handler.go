package handlers

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"modbot/bot"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// databaseSize sums the SQLite file and its WAL sidecar.
func databaseSize(path string) int64 {
	var total int64
	for _, p := range []string{path, path + "-wal"} {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	return total
}

func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	cpuUsage := 0.0
	if len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		vm = &mem.VirtualMemoryStat{}
	}
	hostInfo, err := host.Info()
	if err != nil {
		hostInfo = &host.InfoStat{}
	}

	dbSize := databaseSize(b.GetConfig().DatabasePath) / 1024

	pendingCount := "-"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dbStatus := "✅ OK"
	if err := b.GetDB().PingContext(ctx); err != nil {
		log.Printf("Error pinging database for status: %v", err)
		dbStatus = "❌ Unreachable"
	}
	if pending, err := b.Engine.ListPending(ctx, i.GuildID); err == nil {
		pendingCount = fmt.Sprintf("%d", len(pending))
	} else {
		log.Printf("Error listing pending bans for status: %v", err)
	}

	embed := &discordgo.MessageEmbed{
		Title: "System status",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion), Inline: true},
			{Name: "🔧 Kernel", Value: hostInfo.KernelVersion, Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "🔥 CPU usage", Value: fmt.Sprintf("%.1f%%", cpuUsage), Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024), Inline: true},
			{Name: "🗃️ Database", Value: fmt.Sprintf("%s (%d KB)", dbStatus, dbSize), Inline: true},
			{Name: "⏱️ Gateway latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "🔨 Pending point bans", Value: pendingCount, Inline: true},
			{Name: "🪟 Open approval views", Value: fmt.Sprintf("%d", b.Views.Len()), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("System monitor・%s", time.Now().Format("15:04")),
		},
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

package deepgram

type Voice string

const (
	VoiceAsteria Voice = "aura-asteria-en"
	VoiceLuna    Voice = "aura-luna-en"
	VoiceStella  Voice = "aura-stella-en"
	VoiceAthena  Voice = "aura-athena-en"
	VoiceHera    Voice = "aura-hera-en"
	VoiceOrion   Voice = "aura-orion-en"
	VoiceArcas   Voice = "aura-arcas-en"
	VoicePerseus Voice = "aura-perseus-en"
	VoiceAngus   Voice = "aura-angus-en"
	VoiceOrpheus Voice = "aura-orpheus-en"
	VoiceHelios  Voice = "aura-helios-en"
	VoiceZeus    Voice = "aura-zeus-en"

	VoiceThalia    Voice = "aura-2-thalia-en"
	VoiceAndromeda Voice = "aura-2-andromeda-en"
	VoiceApollo    Voice = "aura-2-apollo-en"
)

const defaultVoice = VoiceAsteria

func GetAvailableVoices() []Voice {
	return []Voice{
		VoiceAsteria,
		VoiceLuna,
		VoiceStella,
		VoiceAthena,
		VoiceHera,
		VoiceOrion,
		VoiceArcas,
		VoicePerseus,
		VoiceAngus,
		VoiceOrpheus,
		VoiceHelios,
		VoiceZeus,
		VoiceThalia,
		VoiceAndromeda,
		VoiceApollo,
	}
}

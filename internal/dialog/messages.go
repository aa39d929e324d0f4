package dialog

// User-facing text. The service answers in Korean, so the client does too.
const (
	MsgWaiting        = "AI 응답을 기다리는 중..."
	MsgNotRecognized  = "음성을 인식하지 못했어요. 다시 말씀해 주세요."
	MsgUnauthorized   = "로그인이 만료되었습니다. 다시 로그인해 주세요."
	MsgUnavailable    = "서버와 연결할 수 없습니다. "
	MsgSpeechFailed   = "음성 안내를 만들지 못했습니다. 답변을 확인해 주세요."
	MsgPlaybackFailed = "오디오 재생에 실패했습니다!"
	MsgUnsupported    = "이 기기에서는 음성 인식을 사용할 수 없습니다."
	MsgEmptyInput     = "내용을 입력해 주세요."
	MsgTimeout        = "응답 시간이 초과되었습니다."
)
